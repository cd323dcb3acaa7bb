package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mcoot/wordbomb/internal/model"
)

const (
	// How long to wait for the server to acknowledge a request
	replyTimeout = 5 * time.Second
	writeTimeout = 5 * time.Second
)

// PlayOptions selects who plays and where
type PlayOptions struct {
	Name      string
	Code      string
	Create    bool
	LobbyName string
	Private   bool
	// Auto names a bot strategy that answers turns; empty plays by hand
	Auto      string
	WordsPath string
}

func (o PlayOptions) validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return errors.New("--name is required")
	}
	if o.Create == (o.Code != "") {
		return errors.New("exactly one of --code or --create is required")
	}
	return nil
}

func newPlayCmd() *cobra.Command {
	var opts PlayOptions

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join or create a lobby and play from the terminal",
		Long: `Connect to the game server over a websocket and play interactively.

Each line typed is submitted as a word on your turn. Commands:
  /ready   toggle ready while the lobby is waiting
  /start   start the game (host only)
  /leave   leave the lobby and exit
  /help    show this list

End of input also leaves the lobby.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			wsURL, err := cfg.WebsocketURL()
			if err != nil {
				return err
			}
			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			return Play(cmd.Context(), wsURL, opts, cmd.InOrStdin(), out, cfg.Verbose)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&opts.Code, "code", "", "Code of the lobby to join")
	cmd.Flags().BoolVar(&opts.Create, "create", false, "Create a new lobby")
	cmd.Flags().StringVar(&opts.LobbyName, "lobby-name", "", "Name for a created lobby")
	cmd.Flags().BoolVar(&opts.Private, "private", false, "Hide a created lobby from the public listing")
	cmd.Flags().StringVar(&opts.Auto, "auto", "", "Answer turns automatically with a strategy: random, longest")
	cmd.Flags().StringVar(&opts.WordsPath, "words", "data/words.txt", "Word list used by --auto")

	return cmd
}

// playSession is one websocket connection driven by terminal input
type playSession struct {
	conn    *websocket.Conn
	printer *eventPrinter
	auto    *autoPlayer
	frames  chan model.Envelope
	readErr error
}

// Play runs an interactive session until input ends, the player leaves,
// the server drops the seat, or ctx is cancelled
func Play(ctx context.Context, wsURL string, opts PlayOptions, in io.Reader, out *Output, verbose bool) error {
	var auto *autoPlayer
	if opts.Auto != "" {
		var err error
		if auto, err = loadAutoPlayer(ctx, opts.Auto, opts.WordsPath); err != nil {
			return err
		}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() { _ = conn.Close() }()

	s := &playSession{
		conn:    conn,
		printer: newEventPrinter(out, verbose),
		auto:    auto,
		frames:  make(chan model.Envelope, 64),
	}
	go s.readLoop()
	if auto != nil {
		out.PrintMessage(fmt.Sprintf("Auto-playing with the %s strategy", model.BotStrategyDisplayName(opts.Auto)))
	}

	if err := s.send(model.EventAuth, model.AuthPayload{PlayerName: opts.Name}); err != nil {
		return err
	}
	if err := s.await(ctx, model.EventPlayerAuthed); err != nil {
		return err
	}

	if opts.Create {
		err = s.send(model.EventLobbyCreate, model.CreateLobbyPayload{
			PlayerName: opts.Name,
			LobbyName:  opts.LobbyName,
			IsPublic:   !opts.Private,
		})
	} else {
		err = s.send(model.EventLobbyJoin, model.JoinLobbyPayload{
			LobbyCode:  model.LobbyCode(opts.Code),
			PlayerName: opts.Name,
		})
	}
	if err != nil {
		return err
	}
	if err := s.await(ctx, model.EventLobbyJoined); err != nil {
		return err
	}

	lines := make(chan string)
	stop := make(chan struct{})
	defer close(stop)
	go scanLines(in, lines, stop)

	for {
		select {
		case <-ctx.Done():
			s.leave()
			return nil

		case env, ok := <-s.frames:
			if !ok {
				return fmt.Errorf("connection closed: %w", s.readErr)
			}
			if err := s.handle(env); err != nil {
				return err
			}
			if env.Event == model.EventLobbyLeft {
				return nil
			}

		case line, ok := <-lines:
			if !ok {
				s.leave()
				return nil
			}
			done, err := s.command(line, out)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

// command handles one line of input and reports whether the session is over
func (s *playSession) command(line string, out *Output) (bool, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false, nil
	case line == "/ready":
		return false, s.send(model.EventGameReady, nil)
	case line == "/start":
		return false, s.send(model.EventGameStart, nil)
	case line == "/leave":
		s.leave()
		return true, nil
	case line == "/help":
		out.PrintMessage("Type a word to submit it. Commands: /ready /start /leave /help")
		return false, nil
	case strings.HasPrefix(line, "/"):
		out.PrintMessage(fmt.Sprintf("Unknown command %s", line))
		return false, nil
	default:
		return false, s.send(model.EventGameSubmit, model.SubmitPayload{Word: line})
	}
}

// handle renders an event and lets the auto player answer it
func (s *playSession) handle(env model.Envelope) error {
	s.printer.Render(env)
	if s.auto == nil {
		return nil
	}
	if word, ok := s.auto.React(env); ok {
		s.printer.out.PrintMessage(fmt.Sprintf("Auto: %s", word))
		return s.send(model.EventGameSubmit, model.SubmitPayload{Word: word})
	}
	return nil
}

func (s *playSession) readLoop() {
	defer close(s.frames)
	for {
		var env model.Envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			s.readErr = err
			return
		}
		s.frames <- env
	}
}

func (s *playSession) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", event, err)
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(model.Envelope{Event: event, Data: data}); err != nil {
		return fmt.Errorf("failed to send %s: %w", event, err)
	}
	return nil
}

// await renders frames until event arrives. An error frame fails the wait.
func (s *playSession) await(ctx context.Context, event string) error {
	timeout := time.NewTimer(replyTimeout)
	defer timeout.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			return fmt.Errorf("timed out waiting for %s", event)
		case env, ok := <-s.frames:
			if !ok {
				return fmt.Errorf("connection closed: %w", s.readErr)
			}
			if env.Event == model.EventError {
				var p model.ErrorPayload
				_ = json.Unmarshal(env.Data, &p)
				return errors.New(p.Message)
			}
			if err := s.handle(env); err != nil {
				return err
			}
			if env.Event == event {
				return nil
			}
		}
	}
}

// leave gives up the seat and waits briefly for the acknowledgement
func (s *playSession) leave() {
	if err := s.send(model.EventLobbyLeave, nil); err != nil {
		return
	}
	_ = s.await(context.Background(), model.EventLobbyLeft)
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}

func scanLines(in io.Reader, lines chan<- string, stop <-chan struct{}) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-stop:
			return
		}
	}
}
