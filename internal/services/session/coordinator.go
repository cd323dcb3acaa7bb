package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mcoot/wordbomb/internal/dependencies/clock"
	"github.com/mcoot/wordbomb/internal/dependencies/random"
	"github.com/mcoot/wordbomb/internal/model"
	"github.com/mcoot/wordbomb/internal/services/dictionary"
	"github.com/mcoot/wordbomb/internal/services/identity"
	"github.com/mcoot/wordbomb/internal/services/lobby"
	"github.com/mcoot/wordbomb/internal/services/ratelimit"
	"github.com/mcoot/wordbomb/internal/services/schedule"
)

// Transport delivers outbound events and tracks lobby rooms.
// Implementations must not block.
type Transport interface {
	Deliver(conn model.ConnID, event string, payload any)
	Broadcast(lobby model.LobbyID, event string, payload any)
	BroadcastAll(event string, payload any)
	Join(conn model.ConnID, lobby model.LobbyID)
	Leave(conn model.ConnID, lobby model.LobbyID)
}

// Coordinator routes connection events to lobbies. Every mutation runs on
// the goroutine executing Run; the Handle* methods and Tick are exported for
// tests that drive the coordinator synchronously.
type Coordinator struct {
	cfg    Config
	clock  clock.Clock
	out    Transport
	logger *slog.Logger

	identities *identity.Registry
	lobbies    *lobby.Registry
	limiter    *ratelimit.Limiter
	timers     *schedule.Queue
	lastSweep  time.Time

	tasks   chan func()
	stopped chan struct{}
}

// New creates a Coordinator
func New(
	cfg Config,
	clk clock.Clock,
	rnd random.Random,
	oracle dictionary.Oracle,
	out Transport,
	logger *slog.Logger,
) *Coordinator {
	c := &Coordinator{
		cfg:        cfg,
		clock:      clk,
		out:        out,
		logger:     logger.With(slog.String("component", "session")),
		identities: identity.New(clk, logger),
		lobbies:    lobby.NewRegistry(clk, rnd, oracle, out, logger),
		limiter:    ratelimit.New(clk, cfg.Rules),
		timers:     schedule.NewQueue(),
		lastSweep:  clk.Now(),
		tasks:      make(chan func(), max(cfg.QueueSize, 1)),
		stopped:    make(chan struct{}),
	}
	c.lobbies.OnDestroyed = c.lobbyDestroyed
	return c
}

// Run processes queued tasks and ticks until ctx is cancelled
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()
	defer close(c.stopped)

	c.logger.Info("coordinator started", slog.Duration("tick_interval", c.cfg.TickInterval))
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("coordinator stopped")
			return
		case task := <-c.tasks:
			task()
		case <-ticker.C:
			c.Tick(c.clock.Now())
		}
	}
}

// Connect announces a new connection
func (c *Coordinator) Connect(conn model.ConnID) {
	c.enqueue(func() { c.HandleConnect(conn) })
}

// Disconnect announces that a connection has gone away
func (c *Coordinator) Disconnect(conn model.ConnID) {
	c.enqueue(func() { c.HandleDisconnect(conn) })
}

// Dispatch queues an inbound event from a connection
func (c *Coordinator) Dispatch(conn model.ConnID, event string, data json.RawMessage) {
	c.enqueue(func() { c.HandleEvent(conn, event, data) })
}

// Listing returns the public lobby listing as seen by the loop
func (c *Coordinator) Listing(ctx context.Context) ([]model.ListingEntry, error) {
	return query(ctx, c, func() ([]model.ListingEntry, error) {
		return c.lobbies.Listing(), nil
	})
}

// Lookup returns the summary of any live lobby by code, public or not
func (c *Coordinator) Lookup(ctx context.Context, code model.LobbyCode) (model.ListingEntry, error) {
	return query(ctx, c, func() (model.ListingEntry, error) {
		l, ok := c.lobbies.GetByCode(code)
		if !ok {
			return model.ListingEntry{}, model.ErrLobbyNotFound
		}
		return l.ListingEntry(), nil
	})
}

// Tick runs due grace timers, every lobby's timers and the limiter sweep
func (c *Coordinator) Tick(now time.Time) {
	c.timers.RunDue(now)
	c.lobbies.Tick(now)
	if now.Sub(c.lastSweep) >= c.cfg.SweepInterval {
		c.lastSweep = now
		remaining := c.limiter.Sweep()
		c.logger.Debug("rate limiter swept", slog.Int("remaining", remaining))
	}
	c.flushListing()
}

func (c *Coordinator) enqueue(fn func()) {
	if err := c.do(context.Background(), fn); err != nil {
		c.logger.Warn("task dropped", slog.Any("error", err))
	}
}

func (c *Coordinator) do(ctx context.Context, fn func()) error {
	select {
	case c.tasks <- fn:
		return nil
	case <-c.stopped:
		return model.ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// query runs fn on the loop and waits for its result
func query[T any](ctx context.Context, c *Coordinator, fn func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	var zero T
	if err := c.do(ctx, func() {
		v, err := fn()
		done <- result{v, err}
	}); err != nil {
		return zero, err
	}
	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-c.stopped:
		return zero, model.ErrStopped
	}
}

// flushListing republishes the public listing if anything changed it
func (c *Coordinator) flushListing() {
	if c.lobbies.TakeListingChanged() {
		c.out.BroadcastAll(model.EventLobbyList, c.lobbies.Listing())
	}
}

func (c *Coordinator) deliverListing(conn model.ConnID) {
	c.out.Deliver(conn, model.EventLobbyList, c.lobbies.Listing())
}

func (c *Coordinator) lobbyDestroyed(l *lobby.Lobby) {
	for _, ident := range c.identities.InLobby(l.ID()) {
		ident.LobbyID = ""
		c.timers.Cancel(seatKey(ident.ID))
		if ident.ConnID != "" {
			c.out.Leave(ident.ConnID, l.ID())
			c.out.Deliver(ident.ConnID, model.EventLobbyLeft, model.LobbyLeftPayload{
				LobbyID: l.ID(),
				Reason:  "expired",
			})
		}
	}
}

func seatKey(id model.PlayerID) string { return "seat:" + string(id) }
func purgeKey(id model.PlayerID) string { return "purge:" + string(id) }
