package lobby

import (
	"log/slog"
	"strings"
	"time"

	"github.com/mcoot/wordbomb/internal/dependencies/clock"
	"github.com/mcoot/wordbomb/internal/model"
	"github.com/mcoot/wordbomb/internal/services/dictionary"
	"github.com/mcoot/wordbomb/internal/services/schedule"
)

const (
	// TimerStep is both the tick period and the amount taken off the timer per tick
	TimerStep = 100 * time.Millisecond
	// TimeoutAdvanceDelay separates an explosion from the next turn
	TimeoutAdvanceDelay = 2 * time.Second
	// SubmitAdvanceDelay separates an accepted word from the next turn
	SubmitAdvanceDelay = time.Second
	// GameEndResetDelay is how long final standings show before returning to waiting
	GameEndResetDelay = 5 * time.Second
	// ReapInterval is how often the AFK reaper runs
	ReapInterval = time.Second
	// IdleTimeout expires an empty or waiting lobby with no activity
	IdleTimeout = 10 * time.Minute
	// AFKTimeout forces a timeout when the active player has been gone this long
	AFKTimeout = 5 * time.Second
)

var (
	seatColors = []string{
		"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231", "#911eb4",
		"#46f0f0", "#f032e6", "#bcf60c", "#fabebe", "#008080", "#e6beff",
	}
	seatAvatars = []string{
		"fox", "owl", "cat", "bear", "frog", "panda",
		"tiger", "koala", "otter", "whale", "crab", "moose",
	}
)

// Broadcaster delivers an event to every connection in a lobby's room
type Broadcaster interface {
	Broadcast(lobby model.LobbyID, event string, payload any)
}

// Hooks let the registry observe a lobby
type Hooks struct {
	// ListingChanged fires when population, settings or state change
	ListingChanged func()
	// Expired fires when the reaper decides the lobby should be destroyed
	Expired func(*Lobby)
}

// JoinResult describes how a player ended up seated
type JoinResult struct {
	// Rejoined is true when the player took back an existing seat
	Rejoined bool
	// ReplacedID is the previous owner of a seat reclaimed by display name
	ReplacedID model.PlayerID
}

type turnTimer struct {
	next time.Time
}

// Lobby is one game room: its roster, settings and turn state machine.
// All methods must be called from the game server loop.
type Lobby struct {
	id             model.LobbyID
	code           model.LobbyCode
	name           string
	hostID         model.PlayerID
	originalHostID model.PlayerID
	players        []*model.Player
	state          model.LobbyState
	settings       model.Settings
	createdAt      time.Time

	currentTurnIndex int
	currentSyllable  string
	usedWords        map[string]struct{}
	timerTenths      int
	timer            *turnTimer
	turnLocked       bool
	turnStartTime    time.Time

	lastActivity time.Time
	lastReap     time.Time
	epoch        uint64
	deferred     *schedule.Queue
	closed       bool

	clock  clock.Clock
	oracle dictionary.Oracle
	out    Broadcaster
	logger *slog.Logger
	hooks  Hooks
}

// New creates an empty lobby in the waiting state
func New(
	id model.LobbyID,
	code model.LobbyCode,
	name string,
	settings model.Settings,
	clk clock.Clock,
	oracle dictionary.Oracle,
	out Broadcaster,
	logger *slog.Logger,
) *Lobby {
	now := clk.Now()
	return &Lobby{
		id:           id,
		code:         code,
		name:         name,
		state:        model.LobbyStateWaiting,
		settings:     settings.Clamp(),
		createdAt:    now,
		usedWords:    make(map[string]struct{}),
		lastActivity: now,
		lastReap:     now,
		deferred:     schedule.NewQueue(),
		clock:        clk,
		oracle:       oracle,
		out:          out,
		logger:       logger.With(slog.String("lobby", string(code))),
	}
}

// Accessors

func (l *Lobby) ID() model.LobbyID { return l.id }
func (l *Lobby) Code() model.LobbyCode { return l.code }
func (l *Lobby) Name() string { return l.name }
func (l *Lobby) State() model.LobbyState { return l.state }
func (l *Lobby) HostID() model.PlayerID { return l.hostID }
func (l *Lobby) OriginalHostID() model.PlayerID { return l.originalHostID }
func (l *Lobby) Settings() model.Settings { return l.settings }
func (l *Lobby) CreatedAt() time.Time { return l.createdAt }
func (l *Lobby) CurrentTurnIndex() int { return l.currentTurnIndex }
func (l *Lobby) CurrentSyllable() string { return l.currentSyllable }
func (l *Lobby) TurnLocked() bool { return l.turnLocked }
func (l *Lobby) Epoch() uint64 { return l.epoch }
func (l *Lobby) PlayerCount() int { return len(l.players) }
func (l *Lobby) IsEmpty() bool { return len(l.players) == 0 }
func (l *Lobby) IsClosed() bool { return l.closed }
func (l *Lobby) TimerRunning() bool { return l.timer != nil }
func (l *Lobby) TimerValue() float64 { return float64(l.timerTenths) / 10 }
func (l *Lobby) HasPlayer(id model.PlayerID) bool { return l.find(id) != nil }

// IsUsed reports whether word was already accepted this game
func (l *Lobby) IsUsed(word string) bool {
	_, ok := l.usedWords[strings.ToLower(word)]
	return ok
}

// Players returns a copy of the roster in turn order
func (l *Lobby) Players() []model.Player {
	out := make([]model.Player, len(l.players))
	for i, p := range l.players {
		out[i] = *p
	}
	return out
}

// Player returns a copy of the seat held by id
func (l *Lobby) Player(id model.PlayerID) (model.Player, bool) {
	p := l.find(id)
	if p == nil {
		return model.Player{}, false
	}
	return *p, true
}

// ActivePlayer returns the seat whose turn it is
func (l *Lobby) ActivePlayer() (model.Player, bool) {
	if len(l.players) == 0 {
		return model.Player{}, false
	}
	return *l.players[l.currentTurnIndex], true
}

// Snapshot builds the full state broadcast
func (l *Lobby) Snapshot() model.GameStatePayload {
	return model.GameStatePayload{
		LobbyID:          l.id,
		LobbyCode:        l.code,
		LobbyName:        l.name,
		State:            l.state,
		Players:          l.Players(),
		HostID:           l.hostID,
		CurrentTurnIndex: l.currentTurnIndex,
		CurrentSyllable:  l.currentSyllable,
		TimerValue:       l.TimerValue(),
		TimerMax:         l.settings.TurnTime,
		TurnLocked:       l.turnLocked,
		Settings:         l.settings,
	}
}

// ListingEntry builds this lobby's row in the public listing
func (l *Lobby) ListingEntry() model.ListingEntry {
	entry := model.ListingEntry{
		ID:          l.id,
		Code:        l.code,
		Name:        l.name,
		PlayerCount: len(l.players),
		MaxPlayers:  l.settings.MaxPlayers,
		State:       l.state,
	}
	if host := l.find(l.hostID); host != nil {
		entry.HostName = host.Name
	}
	return entry
}

// Roster operations

// Join seats a player. A player already seated is marked connected again.
// While a game is running, an unknown id may reclaim a disconnected seat
// whose display name matches; with duplicate names the first match wins.
func (l *Lobby) Join(id model.PlayerID, name string) (JoinResult, error) {
	now := l.clock.Now()

	if p := l.find(id); p != nil {
		if name != "" {
			p.Name = name
		}
		l.markConnected(p)
		l.reclaimHost(id)
		l.touch(now)
		l.broadcastState()
		l.listingChanged()
		return JoinResult{Rejoined: true}, nil
	}

	if l.state == model.LobbyStatePlaying {
		p := l.findDisconnectedByName(name)
		if p == nil {
			return JoinResult{}, model.ErrGameInProgress
		}
		oldID := p.ID
		p.ID = id
		if l.hostID == oldID {
			l.hostID = id
		}
		if l.originalHostID == oldID {
			l.originalHostID = id
		}
		l.markConnected(p)
		l.touch(now)
		l.logger.Info("seat reclaimed by name",
			slog.String("old_player_id", string(oldID)),
			slog.String("player_id", string(id)))
		l.broadcastState()
		return JoinResult{Rejoined: true, ReplacedID: oldID}, nil
	}

	if len(l.players) >= l.settings.MaxPlayers {
		return JoinResult{}, model.ErrLobbyFull
	}

	color, avatar := l.freeLook()
	l.players = append(l.players, &model.Player{
		ID:          id,
		Name:        name,
		Avatar:      avatar,
		Color:       color,
		Lives:       l.settings.StartLives,
		IsConnected: true,
	})
	if l.hostID == "" || id == l.originalHostID {
		l.hostID = id
	}
	l.touch(now)
	l.logger.Info("player joined",
		slog.String("player_id", string(id)),
		slog.Int("players", len(l.players)))
	l.broadcastState()
	l.listingChanged()
	return JoinResult{}, nil
}

// Remove takes a player's seat away, keeping the turn pointer on the same
// player where possible. An open turn held by the leaver passes on at once.
func (l *Lobby) Remove(id model.PlayerID) error {
	idx := l.indexOf(id)
	if idx < 0 {
		return model.ErrNotInLobby
	}
	now := l.clock.Now()
	wasActive := l.state == model.LobbyStatePlaying && idx == l.currentTurnIndex

	l.players = append(l.players[:idx], l.players[idx+1:]...)
	l.touch(now)
	l.logger.Info("player left",
		slog.String("player_id", string(id)),
		slog.Int("players", len(l.players)))

	if len(l.players) == 0 {
		l.currentTurnIndex = 0
		l.hostID = ""
		l.bumpEpoch()
		l.listingChanged()
		return nil
	}

	if idx < l.currentTurnIndex {
		l.currentTurnIndex--
	} else if l.currentTurnIndex >= len(l.players) {
		l.currentTurnIndex = 0
	}

	if l.hostID == id {
		if l.find(l.originalHostID) != nil {
			l.hostID = l.originalHostID
		} else {
			l.hostID = l.players[0].ID
		}
	}

	l.listingChanged()

	if l.state == model.LobbyStatePlaying {
		if l.aliveCount() <= 1 {
			l.endGame()
			return nil
		}
		if wasActive && !l.turnLocked {
			l.nextTurn()
			return nil
		}
	}
	l.broadcastState()
	return nil
}

// SetConnected flips a seat's connection flag
func (l *Lobby) SetConnected(id model.PlayerID, connected bool) error {
	p := l.find(id)
	if p == nil {
		return model.ErrNotInLobby
	}
	now := l.clock.Now()
	if connected {
		l.markConnected(p)
		l.reclaimHost(id)
	} else {
		p.IsConnected = false
		p.DisconnectedAt = &now
	}
	l.touch(now)
	l.broadcastState()
	return nil
}

// Rename updates a seated player's display name
func (l *Lobby) Rename(id model.PlayerID, name string) {
	if p := l.find(id); p != nil && name != "" {
		p.Name = name
	}
}

// ToggleReady flips a player's ready flag while waiting
func (l *Lobby) ToggleReady(id model.PlayerID) error {
	p := l.find(id)
	if p == nil {
		return model.ErrNotInLobby
	}
	if l.state != model.LobbyStateWaiting {
		return model.ErrGameInProgress
	}
	p.IsReady = !p.IsReady
	l.touch(l.clock.Now())
	l.broadcastState()
	return nil
}

// UpdateSettings applies a host's settings change, clamped to allowed bounds
func (l *Lobby) UpdateSettings(id model.PlayerID, u model.SettingsUpdate) error {
	if l.find(id) == nil {
		return model.ErrNotInLobby
	}
	if id != l.hostID {
		return model.ErrNotHost
	}
	if l.state != model.LobbyStateWaiting {
		return model.ErrGameInProgress
	}
	l.settings = l.settings.Apply(u, len(l.players))
	for _, p := range l.players {
		p.Lives = l.settings.StartLives
	}
	l.touch(l.clock.Now())
	l.broadcastState()
	l.listingChanged()
	return nil
}

// Tick advances deferred actions, the turn timer and the AFK reaper to now
func (l *Lobby) Tick(now time.Time) {
	if l.closed {
		return
	}
	l.deferred.RunDue(now)
	l.tickTimer(now)
	if !l.closed && now.Sub(l.lastReap) >= ReapInterval {
		l.lastReap = now
		l.reap(now)
	}
}

// Close cancels everything pending; the lobby ignores ticks afterwards
func (l *Lobby) Close() {
	l.closed = true
	l.bumpEpoch()
	l.deferred.Clear()
}

func (l *Lobby) reap(now time.Time) {
	idle := now.Sub(l.lastActivity)
	if (len(l.players) == 0 || l.state == model.LobbyStateWaiting) && idle >= IdleTimeout {
		l.logger.Info("lobby expired", slog.Duration("idle", idle))
		if l.hooks.Expired != nil {
			l.hooks.Expired(l)
		}
		return
	}

	if l.state != model.LobbyStatePlaying || l.turnLocked || len(l.players) == 0 {
		return
	}
	p := l.players[l.currentTurnIndex]
	if !p.IsConnected && p.DisconnectedAt != nil && now.Sub(*p.DisconnectedAt) >= AFKTimeout {
		l.logger.Info("forcing timeout for disconnected player", slog.String("player_id", string(p.ID)))
		l.timeout()
	}
}

// helpers

func (l *Lobby) find(id model.PlayerID) *model.Player {
	if idx := l.indexOf(id); idx >= 0 {
		return l.players[idx]
	}
	return nil
}

func (l *Lobby) indexOf(id model.PlayerID) int {
	if id == "" {
		return -1
	}
	for i, p := range l.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (l *Lobby) findDisconnectedByName(name string) *model.Player {
	for _, p := range l.players {
		if !p.IsConnected && strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

func (l *Lobby) markConnected(p *model.Player) {
	p.IsConnected = true
	p.DisconnectedAt = nil
}

func (l *Lobby) reclaimHost(id model.PlayerID) {
	if id == l.originalHostID {
		l.hostID = id
	}
}

func (l *Lobby) freeLook() (string, string) {
	usedColors := make(map[string]bool)
	for _, p := range l.players {
		usedColors[p.Color] = true
	}
	for i, c := range seatColors {
		if !usedColors[c] {
			return c, seatAvatars[i]
		}
	}
	i := len(l.players) % len(seatColors)
	return seatColors[i], seatAvatars[i]
}

func (l *Lobby) touch(now time.Time) {
	l.lastActivity = now
}

// bumpEpoch invalidates the turn timer and every deferred action scheduled so far
func (l *Lobby) bumpEpoch() {
	l.epoch++
	l.timer = nil
}

// schedule defers fn; it becomes a no-op if the epoch moves on first
func (l *Lobby) schedule(key string, delay time.Duration, fn func()) {
	epoch := l.epoch
	l.deferred.Schedule(key, l.clock.Now().Add(delay), func() {
		if l.closed || l.epoch != epoch {
			return
		}
		fn()
	})
}

func (l *Lobby) emit(event string, payload any) {
	l.out.Broadcast(l.id, event, payload)
}

func (l *Lobby) broadcastState() {
	l.emit(model.EventGameState, l.Snapshot())
}

func (l *Lobby) listingChanged() {
	if l.hooks.ListingChanged != nil {
		l.hooks.ListingChanged()
	}
}
