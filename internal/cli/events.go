package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcoot/wordbomb/internal/model"
)

// eventPrinter renders server events for a terminal
type eventPrinter struct {
	out     *Output
	verbose bool
	self    model.PlayerID
	names   map[model.PlayerID]string
}

func newEventPrinter(out *Output, verbose bool) *eventPrinter {
	return &eventPrinter{
		out:     out,
		verbose: verbose,
		names:   make(map[model.PlayerID]string),
	}
}

// chatty events arrive several times a second
func chatty(event string) bool {
	switch event {
	case model.EventGameTimer, model.EventGameTyping, model.EventLobbyList:
		return true
	}
	return false
}

// Render prints one event
func (p *eventPrinter) Render(env model.Envelope) {
	if chatty(env.Event) && !p.verbose {
		return
	}
	if p.out.JSON() {
		line, _ := json.Marshal(env)
		fmt.Fprintln(p.out.w, string(line))
		if env.Event == model.EventGameState {
			var st model.GameStatePayload
			if json.Unmarshal(env.Data, &st) == nil {
				p.remember(st.Players)
			}
		}
		return
	}

	if err := p.renderText(env); err != nil {
		fmt.Fprintf(p.out.w, "%s (unreadable: %v)\n", env.Event, err)
	}
}

func (p *eventPrinter) renderText(env model.Envelope) error {
	w := p.out.w
	switch env.Event {
	case model.EventPlayerAuthed:
		var v model.AuthedPayload
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		p.self = v.PlayerID
		p.names[v.PlayerID] = v.PlayerName
		fmt.Fprintf(w, "Playing as %s (%s)\n", v.PlayerName, v.PlayerID)

	case model.EventLobbyJoined:
		var v model.LobbyJoinedPayload
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		fmt.Fprintf(w, "Joined %s (%s)\n", v.LobbyName, v.LobbyCode)

	case model.EventLobbyLeft:
		var v model.LobbyLeftPayload
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		if v.Reason != "" {
			fmt.Fprintf(w, "Left lobby (%s)\n", v.Reason)
		} else {
			fmt.Fprintln(w, "Left lobby")
		}

	case model.EventLobbyList:
		var v []model.ListingEntry
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		fmt.Fprintf(w, "%d public lobbies\n", len(v))

	case model.EventGameState:
		var v model.GameStatePayload
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		p.remember(v.Players)
		p.renderState(v)

	case model.EventGameTimer:
		var v model.TimerPayload
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		fmt.Fprintf(w, "%.1fs left\n", v.TimerValue)

	case model.EventGameTyping:
		var v model.TypingBroadcastPayload
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s is typing: %s\n", p.name(v.PlayerID), v.Text)

	case model.EventGameExplosion:
		var v model.ExplosionPayload
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		lives := 0
		for _, pl := range v.Players {
			if pl.ID == v.PlayerID {
				lives = pl.Lives
			}
		}
		fmt.Fprintf(w, "BOOM! %s lost a life (%d left)\n", p.name(v.PlayerID), lives)

	case model.EventGameWordSuccess:
		var v model.WordSuccessPayload
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s played %s (+%d)\n", p.name(v.PlayerID), strings.ToUpper(v.Word), v.BonusScore)

	case model.EventGameWordRejected:
		var v model.WordRejectedPayload
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		fmt.Fprintf(w, "Word rejected: %s\n", strings.ReplaceAll(string(v.Reason), "_", " "))

	case model.EventGameEnd:
		var v model.GameEndPayload
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		if v.Winner != nil {
			fmt.Fprintf(w, "Game over! Winner: %s (%d pts)\n", v.Winner.Name, v.Winner.Score)
		} else {
			fmt.Fprintln(w, "Game over!")
		}
		for _, r := range v.Rankings {
			fmt.Fprintf(w, "  %d. %s - %d pts, %d words\n", r.Rank, r.Name, r.Score, r.WordsCompleted)
		}

	case model.EventError:
		var v model.ErrorPayload
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		fmt.Fprintf(w, "Error: %s\n", v.Message)

	default:
		fmt.Fprintf(w, "%s %s\n", env.Event, string(env.Data))
	}
	return nil
}

func (p *eventPrinter) renderState(st model.GameStatePayload) {
	w := p.out.w
	switch st.State {
	case model.LobbyStateWaiting:
		seats := make([]string, 0, len(st.Players))
		for _, pl := range st.Players {
			var tags []string
			if pl.ID == st.HostID {
				tags = append(tags, "host")
			}
			if pl.IsReady {
				tags = append(tags, "ready")
			}
			if !pl.IsConnected {
				tags = append(tags, "away")
			}
			if len(tags) > 0 {
				seats = append(seats, fmt.Sprintf("%s [%s]", pl.Name, strings.Join(tags, ", ")))
			} else {
				seats = append(seats, pl.Name)
			}
		}
		fmt.Fprintf(w, "Waiting in %s: %s\n", st.LobbyCode, strings.Join(seats, ", "))

	case model.LobbyStatePlaying:
		if st.CurrentTurnIndex < 0 || st.CurrentTurnIndex >= len(st.Players) {
			return
		}
		active := st.Players[st.CurrentTurnIndex]
		lives := make([]string, 0, len(st.Players))
		for _, pl := range st.Players {
			if pl.InGame {
				lives = append(lives, fmt.Sprintf("%s %d", pl.Name, pl.Lives))
			}
		}
		prompt := strings.ToUpper(st.CurrentSyllable)
		if active.ID == p.self {
			fmt.Fprintf(w, "Your turn! Type a word containing %s (lives: %s)\n", prompt, strings.Join(lives, ", "))
		} else {
			fmt.Fprintf(w, "%s's turn: %s (lives: %s)\n", active.Name, prompt, strings.Join(lives, ", "))
		}

	default:
		fmt.Fprintf(w, "Lobby %s is %s\n", st.LobbyCode, st.State)
	}
}

func (p *eventPrinter) remember(players []model.Player) {
	for _, pl := range players {
		p.names[pl.ID] = pl.Name
	}
}

func (p *eventPrinter) name(id model.PlayerID) string {
	if name, ok := p.names[id]; ok {
		return name
	}
	return string(id)
}
