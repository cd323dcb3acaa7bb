package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/wordbomb/internal/dependencies/random"
	"github.com/mcoot/wordbomb/internal/model"
	"github.com/mcoot/wordbomb/internal/services/bot"
	"github.com/mcoot/wordbomb/internal/services/dictionary"
	"github.com/mcoot/wordbomb/internal/storage/memory"
)

// maxAttempts bounds retries after rejected words within one turn
const maxAttempts = 3

// autoPlayer answers its own turns with a bot strategy
type autoPlayer struct {
	strategy bot.Strategy
	self     model.PlayerID
	used     map[string]bool

	turn      string // identifies the turn last answered
	syllable  string
	minLength int
	attempts  int
	last      string
}

func newAutoPlayer(strategy bot.Strategy) *autoPlayer {
	return &autoPlayer{strategy: strategy, used: make(map[string]bool)}
}

// loadAutoPlayer reads a word list and builds the named strategy over it
func loadAutoPlayer(ctx context.Context, strategyName, wordsPath string) (*autoPlayer, error) {
	rnd := random.New()
	lexicon := dictionary.New(memory.New(), rnd, dictionary.DefaultSyllableConfig(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := lexicon.LoadFromFile(ctx, wordsPath); err != nil {
		return nil, fmt.Errorf("failed to load word list: %w", err)
	}
	strategy, err := bot.New(strategyName, lexicon, rnd)
	if err != nil {
		return nil, err
	}
	return newAutoPlayer(strategy), nil
}

// React inspects a server event and returns a word to submit, if any
func (a *autoPlayer) React(env model.Envelope) (string, bool) {
	switch env.Event {
	case model.EventPlayerAuthed:
		var v model.AuthedPayload
		if json.Unmarshal(env.Data, &v) == nil {
			a.self = v.PlayerID
		}

	case model.EventGameState:
		var st model.GameStatePayload
		if json.Unmarshal(env.Data, &st) != nil {
			return "", false
		}
		if st.State != model.LobbyStatePlaying {
			a.reset()
			return "", false
		}
		if st.TurnLocked || st.CurrentTurnIndex < 0 || st.CurrentTurnIndex >= len(st.Players) {
			return "", false
		}
		if st.Players[st.CurrentTurnIndex].ID != a.self {
			a.turn = ""
			return "", false
		}
		turn := fmt.Sprintf("%d:%s", st.CurrentTurnIndex, st.CurrentSyllable)
		if turn == a.turn {
			return "", false
		}
		a.turn = turn
		a.syllable = st.CurrentSyllable
		a.minLength = st.Settings.MinWordLength
		a.attempts = 0
		return a.choose()

	case model.EventGameWordSuccess:
		var v model.WordSuccessPayload
		if json.Unmarshal(env.Data, &v) == nil {
			a.used[v.Word] = true
		}

	case model.EventGameWordRejected:
		if a.last == "" || a.attempts >= maxAttempts {
			return "", false
		}
		a.used[a.last] = true
		return a.choose()

	case model.EventGameEnd:
		a.reset()
	}
	return "", false
}

func (a *autoPlayer) choose() (string, bool) {
	word, ok := a.strategy.ChooseWord(a.syllable, a.minLength, func(w string) bool { return a.used[w] })
	if !ok {
		a.last = ""
		return "", false
	}
	a.attempts++
	a.last = word
	return word, true
}

func (a *autoPlayer) reset() {
	a.used = make(map[string]bool)
	a.turn = ""
	a.last = ""
	a.attempts = 0
}
