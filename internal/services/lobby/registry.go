package lobby

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/wordbomb/internal/dependencies/clock"
	"github.com/mcoot/wordbomb/internal/dependencies/random"
	"github.com/mcoot/wordbomb/internal/model"
	"github.com/mcoot/wordbomb/internal/services/dictionary"
)

const (
	// LobbyCodeLength is the length of generated lobby codes
	LobbyCodeLength = 6
	// LobbyCodeAlphabet is the characters used in lobby codes (avoid confusing chars)
	LobbyCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	maxCodeAttempts = 100
)

// ErrNoFreeCode is returned when no unused lobby code could be generated
var ErrNoFreeCode = errors.New("could not generate a free lobby code")

// Registry owns every live lobby. It is not safe for concurrent use.
type Registry struct {
	clock  clock.Clock
	random random.Random
	oracle dictionary.Oracle
	out    Broadcaster
	logger *slog.Logger

	lobbies map[model.LobbyID]*Lobby
	byCode  map[model.LobbyCode]*Lobby
	order   []*Lobby

	listingDirty bool

	// OnDestroyed is called after a lobby has been removed and closed
	OnDestroyed func(*Lobby)
}

// NewRegistry creates an empty Registry
func NewRegistry(
	clk clock.Clock,
	rnd random.Random,
	oracle dictionary.Oracle,
	out Broadcaster,
	logger *slog.Logger,
) *Registry {
	return &Registry{
		clock:   clk,
		random:  rnd,
		oracle:  oracle,
		out:     out,
		logger:  logger.With(slog.String("component", "lobbies")),
		lobbies: make(map[model.LobbyID]*Lobby),
		byCode:  make(map[model.LobbyCode]*Lobby),
	}
}

// Create opens a lobby with a fresh code and seats the host in it
func (r *Registry) Create(hostID model.PlayerID, hostName, lobbyName string, isPublic bool) (*Lobby, error) {
	// Generate unique lobby code
	var code model.LobbyCode
	for attempt := 0; ; attempt++ {
		if attempt == maxCodeAttempts {
			return nil, ErrNoFreeCode
		}
		code = model.LobbyCode(r.random.String(LobbyCodeLength, LobbyCodeAlphabet)).Normalize()
		if _, taken := r.byCode[code]; code != "" && !taken {
			break
		}
	}

	name := model.CleanName(lobbyName, model.MaxLobbyNameLength)
	if name == "" {
		name = model.CleanName(fmt.Sprintf("%s's lobby", hostName), model.MaxLobbyNameLength)
	}

	settings := model.DefaultSettings()
	settings.IsPublic = isPublic

	l := New(model.LobbyID(uuid.NewString()), code, name, settings, r.clock, r.oracle, r.out, r.logger)
	l.originalHostID = hostID
	l.hooks = Hooks{
		ListingChanged: r.MarkListingChanged,
		Expired:        func(l *Lobby) { r.Destroy(l.ID()) },
	}

	r.lobbies[l.id] = l
	r.byCode[code] = l
	r.order = append(r.order, l)

	if _, err := l.Join(hostID, hostName); err != nil {
		r.Destroy(l.id)
		return nil, err
	}

	r.logger.Info("lobby created",
		slog.String("lobby", string(code)),
		slog.String("host_id", string(hostID)),
		slog.Bool("public", isPublic))
	r.MarkListingChanged()
	return l, nil
}

// Get returns the lobby with id
func (r *Registry) Get(id model.LobbyID) (*Lobby, bool) {
	l, ok := r.lobbies[id]
	return l, ok
}

// GetByCode returns the lobby with code, ignoring case
func (r *Registry) GetByCode(code model.LobbyCode) (*Lobby, bool) {
	l, ok := r.byCode[code.Normalize()]
	return l, ok
}

// Locate finds a lobby by id, falling back to code
func (r *Registry) Locate(id model.LobbyID, code model.LobbyCode) (*Lobby, bool) {
	if id != "" {
		if l, ok := r.Get(id); ok {
			return l, true
		}
	}
	if code != "" {
		return r.GetByCode(code)
	}
	return nil, false
}

// Destroy removes a lobby and cancels everything it had pending
func (r *Registry) Destroy(id model.LobbyID) bool {
	l, ok := r.lobbies[id]
	if !ok {
		return false
	}
	delete(r.lobbies, id)
	delete(r.byCode, l.code)
	for i, o := range r.order {
		if o == l {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	l.Close()

	r.logger.Info("lobby destroyed", slog.String("lobby", string(l.code)))
	r.MarkListingChanged()
	if r.OnDestroyed != nil {
		r.OnDestroyed(l)
	}
	return true
}

// Tick drives every lobby's timers in creation order
func (r *Registry) Tick(now time.Time) {
	snapshot := make([]*Lobby, len(r.order))
	copy(snapshot, r.order)
	for _, l := range snapshot {
		l.Tick(now)
	}
}

// Listing returns the public lobbies that are not finished, oldest first
func (r *Registry) Listing() []model.ListingEntry {
	entries := []model.ListingEntry{}
	for _, l := range r.order {
		if !l.settings.IsPublic || l.state == model.LobbyStateFinished {
			continue
		}
		entries = append(entries, l.ListingEntry())
	}
	return entries
}

// MarkListingChanged flags the public listing for republishing
func (r *Registry) MarkListingChanged() {
	r.listingDirty = true
}

// TakeListingChanged reports and clears the republish flag
func (r *Registry) TakeListingChanged() bool {
	dirty := r.listingDirty
	r.listingDirty = false
	return dirty
}

// Len returns the number of live lobbies
func (r *Registry) Len() int {
	return len(r.lobbies)
}
