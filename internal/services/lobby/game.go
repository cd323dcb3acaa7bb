package lobby

import (
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/mcoot/wordbomb/internal/model"
	"github.com/mcoot/wordbomb/internal/services/scoring"
)

// Start begins a game with every player who is both ready and connected.
// Everyone else stays seated as a spectator with no lives.
func (l *Lobby) Start(id model.PlayerID) error {
	if l.find(id) == nil {
		return model.ErrNotInLobby
	}
	if id != l.hostID {
		return model.ErrNotHost
	}
	if l.state != model.LobbyStateWaiting {
		return model.ErrGameInProgress
	}

	eligible := 0
	for _, p := range l.players {
		if p.IsReady && p.IsConnected {
			eligible++
		}
	}
	if eligible < 2 {
		return model.ErrInsufficientPlayers
	}
	// an empty prompt would be contained in every word
	if !l.oracle.HasSyllables() {
		return model.ErrNoSyllables
	}

	l.state = model.LobbyStatePlaying
	l.bumpEpoch()
	l.usedWords = make(map[string]struct{})
	l.currentTurnIndex = 0
	for _, p := range l.players {
		p.InGame = p.IsReady && p.IsConnected
		if p.InGame {
			p.Lives = l.settings.StartLives
		} else {
			p.Lives = 0
			p.IsReady = false
		}
		p.Score = 0
		p.WordsCompleted = 0
		p.CurrentInput = ""
	}
	l.touch(l.clock.Now())
	l.logger.Info("game started", slog.Int("participants", eligible))

	l.listingChanged()
	l.nextTurn()
	return nil
}

// SubmitWord validates a word for the active player. Any failure returns a
// *model.Rejection and leaves the lobby untouched.
func (l *Lobby) SubmitWord(id model.PlayerID, raw string) error {
	p, err := l.checkTurn(id)
	if err != nil {
		return err
	}

	word := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case !isWellFormed(word):
		return model.Reject(model.RejectInvalidInput)
	case utf8.RuneCountInString(word) < l.settings.MinWordLength:
		return model.Reject(model.RejectTooShort)
	case l.IsUsed(word):
		return model.Reject(model.RejectAlreadyUsed)
	case !strings.Contains(word, l.currentSyllable):
		return model.Reject(model.RejectMissingSyllable)
	case !l.oracle.IsWord(word):
		return model.Reject(model.RejectNotAWord)
	}

	now := l.clock.Now()
	l.usedWords[word] = struct{}{}
	l.turnLocked = true
	l.timer = nil

	turnTime := float64(l.settings.TurnTime)
	remaining := turnTime - now.Sub(l.turnStartTime).Seconds()
	bonus := scoring.WordScore(len(word), remaining, turnTime)

	p.Score += bonus
	p.WordsCompleted++
	p.CurrentInput = ""
	l.touch(now)

	l.emit(model.EventGameWordSuccess, model.WordSuccessPayload{
		PlayerID:   p.ID,
		Word:       word,
		BonusScore: bonus,
	})
	l.scheduleAdvance(SubmitAdvanceDelay, p.ID)
	return nil
}

// UpdateTyping mirrors the active player's input to the room
func (l *Lobby) UpdateTyping(id model.PlayerID, text string) error {
	p, err := l.checkTurn(id)
	if err != nil {
		return err
	}
	if utf8.RuneCountInString(text) > model.MaxInputLength {
		text = string([]rune(text)[:model.MaxInputLength])
	}
	p.CurrentInput = text
	l.touch(l.clock.Now())
	l.emit(model.EventGameTyping, model.TypingBroadcastPayload{PlayerID: p.ID, Text: text})
	return nil
}

// checkTurn returns the active seat if id may act on the current turn
func (l *Lobby) checkTurn(id model.PlayerID) (*model.Player, error) {
	if l.state != model.LobbyStatePlaying || len(l.players) == 0 {
		return nil, model.Reject(model.RejectNotPlaying)
	}
	if l.turnLocked {
		return nil, model.Reject(model.RejectTurnLocked)
	}
	active := l.players[l.currentTurnIndex]
	if active.ID != id {
		return nil, model.Reject(model.RejectNotYourTurn)
	}
	if !active.IsAlive() {
		return nil, model.Reject(model.RejectEliminated)
	}
	if !active.IsConnected {
		return nil, model.Reject(model.RejectDisconnected)
	}
	return active, nil
}

// nextTurn opens a turn for the first living player at or after the turn index
func (l *Lobby) nextTurn() {
	if len(l.players) == 0 {
		return
	}
	l.turnLocked = false

	for i := 0; i < len(l.players); i++ {
		if l.players[l.currentTurnIndex].IsAlive() {
			break
		}
		l.currentTurnIndex = (l.currentTurnIndex + 1) % len(l.players)
	}

	now := l.clock.Now()
	l.currentSyllable = l.oracle.RandomSyllable()
	l.timerTenths = l.settings.TurnTime * 10
	l.turnStartTime = now
	// Replacing the handle is what cancels the previous timer
	l.timer = &turnTimer{next: now.Add(TimerStep)}
	l.players[l.currentTurnIndex].CurrentInput = ""

	l.broadcastState()
}

func (l *Lobby) tickTimer(now time.Time) {
	if l.timer == nil || l.state != model.LobbyStatePlaying {
		return
	}

	ticked := false
	for !now.Before(l.timer.next) {
		l.timer.next = l.timer.next.Add(TimerStep)
		l.timerTenths--
		ticked = true
		if l.timerTenths <= 0 {
			l.timerTenths = 0
			l.timer = nil
			l.timeout()
			return
		}
	}

	if ticked {
		l.emit(model.EventGameTimer, model.TimerPayload{
			TimerValue: l.TimerValue(),
			TimerMax:   l.settings.TurnTime,
		})
	}
}

// timeout costs the active player a life. It runs at most once per turn.
func (l *Lobby) timeout() {
	if l.state != model.LobbyStatePlaying || l.turnLocked || len(l.players) == 0 {
		return
	}
	l.turnLocked = true
	l.timer = nil

	p := l.players[l.currentTurnIndex]
	if p.Lives > 0 {
		p.Lives--
	}
	p.CurrentInput = ""

	lives := make([]model.PlayerLives, len(l.players))
	for i, q := range l.players {
		lives[i] = model.PlayerLives{ID: q.ID, Lives: q.Lives}
	}
	l.emit(model.EventGameExplosion, model.ExplosionPayload{PlayerID: p.ID, Players: lives})

	l.scheduleAdvance(TimeoutAdvanceDelay, p.ID)
}

// scheduleAdvance moves the turn on after delay. from is the player whose turn
// just closed; if they have left, the index already points past them.
func (l *Lobby) scheduleAdvance(delay time.Duration, from model.PlayerID) {
	l.schedule("advance", delay, func() {
		if l.state != model.LobbyStatePlaying {
			return
		}
		if l.aliveCount() <= 1 {
			l.endGame()
			return
		}
		if idx := l.indexOf(from); idx >= 0 {
			l.currentTurnIndex = (idx + 1) % len(l.players)
		}
		l.nextTurn()
	})
}

func (l *Lobby) endGame() {
	l.state = model.LobbyStateFinished
	l.bumpEpoch()
	l.turnLocked = true

	// every seat is ranked; spectators follow participants on full ties
	var participants, spectators, alive []model.Player
	for _, p := range l.players {
		if !p.InGame {
			spectators = append(spectators, *p)
			continue
		}
		participants = append(participants, *p)
		if p.IsAlive() {
			alive = append(alive, *p)
		}
	}
	rankings := scoring.Rank(append(participants, spectators...))

	var winner *model.Winner
	if len(alive) == 1 {
		winner = &model.Winner{ID: alive[0].ID, Name: alive[0].Name, Score: alive[0].Score}
	} else if len(rankings) > 0 {
		winner = &model.Winner{ID: rankings[0].PlayerID, Name: rankings[0].Name, Score: rankings[0].Score}
	}

	l.touch(l.clock.Now())
	if winner != nil {
		l.logger.Info("game ended", slog.String("winner", string(winner.ID)))
	}

	l.emit(model.EventGameEnd, model.GameEndPayload{Winner: winner, Rankings: rankings})
	l.broadcastState()
	l.listingChanged()

	l.schedule("reset", GameEndResetDelay, l.reset)
}

func (l *Lobby) reset() {
	l.state = model.LobbyStateWaiting
	l.bumpEpoch()
	l.turnLocked = false
	l.currentTurnIndex = 0
	l.currentSyllable = ""
	l.usedWords = make(map[string]struct{})
	l.timerTenths = 0
	for _, p := range l.players {
		p.Lives = l.settings.StartLives
		p.Score = 0
		p.WordsCompleted = 0
		p.IsReady = false
		p.CurrentInput = ""
		p.InGame = false
	}
	l.touch(l.clock.Now())
	l.broadcastState()
	l.listingChanged()
}

func (l *Lobby) aliveCount() int {
	n := 0
	for _, p := range l.players {
		if p.IsAlive() {
			n++
		}
	}
	return n
}

func isWellFormed(word string) bool {
	if word == "" || utf8.RuneCountInString(word) > model.MaxInputLength {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
