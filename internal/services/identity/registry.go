package identity

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/mcoot/wordbomb/internal/dependencies/clock"
	"github.com/mcoot/wordbomb/internal/model"
)

// Registry maps transient connections to durable player identities.
// It is owned by the game server loop and is not safe for concurrent use.
type Registry struct {
	clock  clock.Clock
	logger *slog.Logger
	newID  func() model.PlayerID

	identities map[model.PlayerID]*model.Identity
	byConn     map[model.ConnID]model.PlayerID
}

// New creates an empty Registry
func New(clk clock.Clock, logger *slog.Logger) *Registry {
	return &Registry{
		clock:      clk,
		logger:     logger.With(slog.String("component", "identity")),
		newID:      func() model.PlayerID { return model.PlayerID(uuid.NewString()) },
		identities: make(map[model.PlayerID]*model.Identity),
		byConn:     make(map[model.ConnID]model.PlayerID),
	}
}

// Mint creates a fresh identity bound to conn
func (r *Registry) Mint(conn model.ConnID, name string) *model.Identity {
	ident := &model.Identity{ID: r.newID(), Name: name}
	r.identities[ident.ID] = ident
	r.Bind(ident.ID, conn)
	r.logger.Info("identity minted", slog.String("player_id", string(ident.ID)))
	return ident
}

// Get returns the identity with id
func (r *Registry) Get(id model.PlayerID) (*model.Identity, bool) {
	ident, ok := r.identities[id]
	return ident, ok
}

// Resolve returns the identity bound to conn
func (r *Registry) Resolve(conn model.ConnID) (*model.Identity, bool) {
	id, ok := r.byConn[conn]
	if !ok {
		return nil, false
	}
	return r.Get(id)
}

// Bind attaches conn to the identity with id, replacing both sides of any
// previous mapping. It returns the connection that was evicted, if any.
func (r *Registry) Bind(id model.PlayerID, conn model.ConnID) model.ConnID {
	ident, ok := r.identities[id]
	if !ok {
		return ""
	}

	// conn may already speak for a different identity
	if prevID, ok := r.byConn[conn]; ok && prevID != id {
		if prev, ok := r.identities[prevID]; ok {
			prev.ConnID = ""
			now := r.clock.Now()
			prev.DisconnectedAt = &now
		}
	}

	evicted := ident.ConnID
	if evicted != "" && evicted != conn {
		delete(r.byConn, evicted)
	} else {
		evicted = ""
	}

	ident.ConnID = conn
	ident.DisconnectedAt = nil
	r.byConn[conn] = id
	return evicted
}

// Release unbinds conn and marks its identity disconnected
func (r *Registry) Release(conn model.ConnID) (*model.Identity, bool) {
	id, ok := r.byConn[conn]
	if !ok {
		return nil, false
	}
	delete(r.byConn, conn)

	ident, ok := r.identities[id]
	if !ok {
		return nil, false
	}
	if ident.ConnID == conn {
		ident.ConnID = ""
		now := r.clock.Now()
		ident.DisconnectedAt = &now
	}
	return ident, true
}

// Purge forgets the identity entirely
func (r *Registry) Purge(id model.PlayerID) {
	ident, ok := r.identities[id]
	if !ok {
		return
	}
	if ident.ConnID != "" {
		delete(r.byConn, ident.ConnID)
	}
	delete(r.identities, id)
	r.logger.Info("identity purged", slog.String("player_id", string(id)))
}

// InLobby returns the identities that reference lobby
func (r *Registry) InLobby(lobby model.LobbyID) []*model.Identity {
	var out []*model.Identity
	for _, ident := range r.identities {
		if ident.LobbyID == lobby {
			out = append(out, ident)
		}
	}
	return out
}

// Len returns the number of known identities
func (r *Registry) Len() int {
	return len(r.identities)
}
