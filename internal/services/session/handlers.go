package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/wordbomb/internal/model"
	"github.com/mcoot/wordbomb/internal/services/lobby"
	"github.com/mcoot/wordbomb/internal/services/ratelimit"
)

// HandleConnect greets a new connection with the public listing
func (c *Coordinator) HandleConnect(conn model.ConnID) {
	c.logger.Debug("connection opened", slog.String("conn_id", string(conn)))
	c.deliverListing(conn)
}

// HandleDisconnect unbinds a connection. The seat stays reserved for the
// grace period and the identity for its TTL.
func (c *Coordinator) HandleDisconnect(conn model.ConnID) {
	c.limiter.Forget(conn)
	c.detach(conn)
	c.flushListing()
}

// HandleEvent routes one inbound event. Failures are reported to conn only.
func (c *Coordinator) HandleEvent(conn model.ConnID, event string, data json.RawMessage) {
	var err error
	switch event {
	case model.EventAuth:
		err = c.handleAuth(conn, data)
	case model.EventRestore:
		err = c.handleRestore(conn, data)
	case model.EventLobbyCreate:
		err = c.handleCreate(conn, data)
	case model.EventLobbyJoin:
		err = c.handleJoin(conn, data)
	case model.EventLobbyLeave:
		err = c.handleLeave(conn)
	case model.EventLobbyRefresh:
		c.deliverListing(conn)
	case model.EventLobbySettings:
		err = c.handleSettings(conn, data)
	case model.EventGameStart:
		err = c.withLobby(conn, func(ident *model.Identity, l *lobby.Lobby) error {
			return l.Start(ident.ID)
		})
	case model.EventGameReady:
		err = c.withLobby(conn, func(ident *model.Identity, l *lobby.Lobby) error {
			return l.ToggleReady(ident.ID)
		})
	case model.EventGameTyping:
		err = c.handleTyping(conn, data)
	case model.EventGameSubmit:
		err = c.handleSubmit(conn, data)
	default:
		err = model.ErrUnknownEvent
	}

	if err != nil {
		c.logger.Debug("event rejected",
			slog.String("conn_id", string(conn)),
			slog.String("event", event),
			slog.Any("error", err))
		c.out.Deliver(conn, model.EventError, model.ErrorPayload{Message: model.ErrorMessage(err)})
	}
	c.flushListing()
}

func (c *Coordinator) handleAuth(conn model.ConnID, data json.RawMessage) error {
	p, err := decode[model.AuthPayload](data)
	if err != nil {
		return err
	}
	name := model.CleanName(p.PlayerName, model.MaxNameLength)
	if name == "" {
		return model.ErrInvalidName
	}

	ident, known := c.identities.Get(p.PlayerID)
	if !known {
		c.detach(conn)
		ident = c.identities.Mint(conn, name)
		c.out.Deliver(conn, model.EventPlayerAuthed, model.AuthedPayload{PlayerID: ident.ID, PlayerName: name})
		c.deliverListing(conn)
		return nil
	}

	c.rebind(ident, conn)
	ident.Name = name
	c.out.Deliver(conn, model.EventPlayerAuthed, model.AuthedPayload{
		PlayerID:    ident.ID,
		PlayerName:  name,
		IsReconnect: true,
	})
	c.deliverListing(conn)

	if l := c.seatedLobby(ident); l != nil {
		c.enterRoom(conn, l)
		l.Rename(ident.ID, name)
		_ = l.SetConnected(ident.ID, true)
	}
	c.logger.Info("player reconnected", slog.String("player_id", string(ident.ID)))
	return nil
}

func (c *Coordinator) handleRestore(conn model.ConnID, data json.RawMessage) error {
	p, err := decode[model.RestorePayload](data)
	if err != nil {
		return err
	}
	name := model.CleanName(p.PlayerName, model.MaxNameLength)

	ident, known := c.identities.Get(p.PlayerID)
	if !known {
		// the client renames itself with a later auth
		if name == "" {
			name = model.PlaceholderName
		}
		c.detach(conn)
		fresh := c.identities.Mint(conn, name)
		c.out.Deliver(conn, model.EventPlayerRestoreFail, model.RestoreFailedPayload{
			Reason:      "session expired",
			NewPlayerID: fresh.ID,
		})
		return nil
	}

	c.rebind(ident, conn)
	if name != "" {
		ident.Name = name
	}

	l, found := c.lobbies.Locate(p.LobbyID, p.LobbyCode)
	if !found || !l.HasPlayer(ident.ID) {
		c.out.Deliver(conn, model.EventPlayerRestored, model.RestoredPayload{PlayerID: ident.ID})
		c.deliverListing(conn)
		// a seat held elsewhere is kept, as after auth
		if current := c.seatedLobby(ident); current != nil {
			c.enterRoom(conn, current)
			current.Rename(ident.ID, ident.Name)
			_ = current.SetConnected(ident.ID, true)
		}
		return nil
	}

	if ident.LobbyID != "" && ident.LobbyID != l.ID() {
		c.leaveCurrent(ident, conn)
	}
	ident.LobbyID = l.ID()
	c.out.Join(conn, l.ID())
	c.out.Deliver(conn, model.EventPlayerRestored, model.RestoredPayload{
		PlayerID:  ident.ID,
		InLobby:   true,
		LobbyID:   l.ID(),
		LobbyCode: l.Code(),
		LobbyName: l.Name(),
	})
	l.Rename(ident.ID, ident.Name)
	_ = l.SetConnected(ident.ID, true)
	c.logger.Info("player restored",
		slog.String("player_id", string(ident.ID)),
		slog.String("lobby", string(l.Code())))
	return nil
}

func (c *Coordinator) handleCreate(conn model.ConnID, data json.RawMessage) error {
	ident, err := c.requireIdentity(conn)
	if err != nil {
		return err
	}
	if !c.limiter.Allow(conn, ratelimit.KindCreate) {
		return model.ErrRateLimited
	}
	p, err := decode[model.CreateLobbyPayload](data)
	if err != nil {
		return err
	}
	if name := model.CleanName(p.PlayerName, model.MaxNameLength); name != "" {
		ident.Name = name
	}

	l, err := c.lobbies.Create(ident.ID, ident.Name, p.LobbyName, p.IsPublic)
	if err != nil {
		return err
	}
	c.leaveCurrent(ident, conn)
	ident.LobbyID = l.ID()
	c.enterRoom(conn, l)
	c.out.Deliver(conn, model.EventGameState, l.Snapshot())
	return nil
}

func (c *Coordinator) handleJoin(conn model.ConnID, data json.RawMessage) error {
	ident, err := c.requireIdentity(conn)
	if err != nil {
		return err
	}
	if !c.limiter.Allow(conn, ratelimit.KindJoin) {
		return model.ErrRateLimited
	}
	p, err := decode[model.JoinLobbyPayload](data)
	if err != nil {
		return err
	}
	if name := model.CleanName(p.PlayerName, model.MaxNameLength); name != "" {
		ident.Name = name
	}

	l, ok := c.lobbies.GetByCode(p.LobbyCode)
	if !ok {
		return model.ErrLobbyNotFound
	}

	result, err := l.Join(ident.ID, ident.Name)
	if err != nil {
		return err
	}
	if result.ReplacedID != "" {
		if old, ok := c.identities.Get(result.ReplacedID); ok {
			old.LobbyID = ""
			c.timers.Cancel(seatKey(old.ID))
		}
	}
	if ident.LobbyID != l.ID() {
		c.leaveCurrent(ident, conn)
	}
	ident.LobbyID = l.ID()
	c.timers.Cancel(seatKey(ident.ID))
	c.enterRoom(conn, l)
	c.out.Deliver(conn, model.EventGameState, l.Snapshot())
	return nil
}

func (c *Coordinator) handleLeave(conn model.ConnID) error {
	return c.withLobby(conn, func(ident *model.Identity, l *lobby.Lobby) error {
		c.leaveCurrent(ident, conn)
		c.out.Deliver(conn, model.EventLobbyLeft, model.LobbyLeftPayload{LobbyID: l.ID()})
		c.deliverListing(conn)
		return nil
	})
}

func (c *Coordinator) handleSettings(conn model.ConnID, data json.RawMessage) error {
	u, err := decode[model.SettingsUpdate](data)
	if err != nil {
		return err
	}
	return c.withLobby(conn, func(ident *model.Identity, l *lobby.Lobby) error {
		return l.UpdateSettings(ident.ID, u)
	})
}

// handleTyping drops rate limited or out of turn keystrokes without a reply
func (c *Coordinator) handleTyping(conn model.ConnID, data json.RawMessage) error {
	if !c.limiter.Allow(conn, ratelimit.KindTyping) {
		return nil
	}
	p, err := decode[model.TypingPayload](data)
	if err != nil {
		return err
	}
	return c.withLobby(conn, func(ident *model.Identity, l *lobby.Lobby) error {
		var rej *model.Rejection
		if err := l.UpdateTyping(ident.ID, p.Text); err != nil && !errors.As(err, &rej) {
			return err
		}
		return nil
	})
}

func (c *Coordinator) handleSubmit(conn model.ConnID, data json.RawMessage) error {
	if !c.limiter.Allow(conn, ratelimit.KindSubmit) {
		return nil
	}
	p, err := decode[model.SubmitPayload](data)
	if err != nil {
		return err
	}
	return c.withLobby(conn, func(ident *model.Identity, l *lobby.Lobby) error {
		err := l.SubmitWord(ident.ID, p.Word)
		var rej *model.Rejection
		if errors.As(err, &rej) {
			c.out.Deliver(conn, model.EventGameWordRejected, model.WordRejectedPayload{Reason: rej.Reason})
			return nil
		}
		return err
	})
}

// helpers

func (c *Coordinator) requireIdentity(conn model.ConnID) (*model.Identity, error) {
	ident, ok := c.identities.Resolve(conn)
	if !ok {
		return nil, model.ErrNotAuthenticated
	}
	return ident, nil
}

// withLobby runs fn against the lobby the connection's player is seated in
func (c *Coordinator) withLobby(conn model.ConnID, fn func(*model.Identity, *lobby.Lobby) error) error {
	ident, err := c.requireIdentity(conn)
	if err != nil {
		return err
	}
	l := c.seatedLobby(ident)
	if l == nil {
		return model.ErrNotInLobby
	}
	return fn(ident, l)
}

// seatedLobby returns the lobby ident references if it still holds a seat there,
// clearing stale references
func (c *Coordinator) seatedLobby(ident *model.Identity) *lobby.Lobby {
	if ident.LobbyID == "" {
		return nil
	}
	l, ok := c.lobbies.Get(ident.LobbyID)
	if !ok || !l.HasPlayer(ident.ID) {
		ident.LobbyID = ""
		return nil
	}
	return l
}

func (c *Coordinator) enterRoom(conn model.ConnID, l *lobby.Lobby) {
	c.out.Join(conn, l.ID())
	c.out.Deliver(conn, model.EventLobbyJoined, model.LobbyJoinedPayload{
		LobbyID:   l.ID(),
		LobbyCode: l.Code(),
		LobbyName: l.Name(),
	})
}

// rebind moves ident onto conn and cancels its pending grace timers
func (c *Coordinator) rebind(ident *model.Identity, conn model.ConnID) {
	if prev, ok := c.identities.Resolve(conn); ok && prev.ID != ident.ID {
		c.detach(conn)
	}
	evicted := c.identities.Bind(ident.ID, conn)
	if evicted != "" && ident.LobbyID != "" {
		c.out.Leave(evicted, ident.LobbyID)
	}
	c.timers.Cancel(seatKey(ident.ID))
	c.timers.Cancel(purgeKey(ident.ID))
}

// detach releases conn from its identity and starts the grace timers
func (c *Coordinator) detach(conn model.ConnID) {
	ident, ok := c.identities.Release(conn)
	if !ok || ident.IsConnected() {
		return
	}
	now := c.clock.Now()

	if l := c.seatedLobby(ident); l != nil {
		c.out.Leave(conn, l.ID())
		_ = l.SetConnected(ident.ID, false)
		c.armSeatTimer(ident.ID)
	}

	id := ident.ID
	c.timers.Schedule(purgeKey(id), now.Add(c.cfg.IdentityTTL), func() { c.purge(id) })
	c.logger.Info("player disconnected", slog.String("player_id", string(id)))
}

// armSeatTimer releases a disconnected player's seat once the grace period
// passes while the lobby is waiting; otherwise it checks again later
func (c *Coordinator) armSeatTimer(id model.PlayerID) {
	c.timers.Schedule(seatKey(id), c.clock.Now().Add(c.cfg.SeatGracePeriod), func() {
		ident, ok := c.identities.Get(id)
		if !ok || ident.IsConnected() {
			return
		}
		l := c.seatedLobby(ident)
		if l == nil {
			return
		}
		if l.State() != model.LobbyStateWaiting {
			c.armSeatTimer(id)
			return
		}
		c.logger.Info("seat released after grace period",
			slog.String("player_id", string(id)),
			slog.String("lobby", string(l.Code())))
		c.leaveCurrent(ident, "")
	})
}

func (c *Coordinator) purge(id model.PlayerID) {
	ident, ok := c.identities.Get(id)
	if !ok || ident.IsConnected() {
		return
	}
	c.timers.Cancel(seatKey(id))
	c.leaveCurrent(ident, "")
	c.identities.Purge(id)
}

// leaveCurrent gives up ident's seat, destroying the lobby once it is empty
func (c *Coordinator) leaveCurrent(ident *model.Identity, conn model.ConnID) {
	id := ident.LobbyID
	if id == "" {
		return
	}
	ident.LobbyID = ""
	c.timers.Cancel(seatKey(ident.ID))
	if conn != "" {
		c.out.Leave(conn, id)
	}

	l, ok := c.lobbies.Get(id)
	if !ok {
		return
	}
	_ = l.Remove(ident.ID)
	if l.IsEmpty() {
		c.lobbies.Destroy(l.ID())
	}
}

func decode[T any](data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 || string(data) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%w: %v", model.ErrInvalidPayload, err)
	}
	return v, nil
}
