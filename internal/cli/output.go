package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	if w == nil {
		w = os.Stdout
	}
	return &Output{format: format, w: w}
}

// JSON reports whether output is machine readable
func (o *Output) JSON() bool {
	return o.format == "json"
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.JSON() {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.JSON() {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Lobby:
		o.printLobby(v)
	case LobbyList:
		o.printLobbyList(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Lobby response type (matches API)
type Lobby struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	HostName    string `json:"host_name"`
	State       string `json:"state"`
}

// LobbyList response type
type LobbyList struct {
	Lobbies []Lobby `json:"lobbies"`
}

// HealthResult response type
type HealthResult struct {
	Status    string `json:"status"`
	Server    string `json:"server,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

func (o *Output) printLobby(l Lobby) {
	fmt.Fprintf(o.w, "Lobby: %s (%s)\n", l.Name, l.Code)
	fmt.Fprintf(o.w, "State: %s\n", l.State)
	fmt.Fprintf(o.w, "Host: %s\n", l.HostName)
	fmt.Fprintf(o.w, "Players: %d/%d\n", l.PlayerCount, l.MaxPlayers)
}

func (o *Output) printLobbyList(list LobbyList) {
	if len(list.Lobbies) == 0 {
		fmt.Fprintln(o.w, "No public lobbies")
		return
	}

	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tHOST\tPLAYERS\tSTATE")
	for _, l := range list.Lobbies {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\n", l.Code, l.Name, l.HostName, l.PlayerCount, l.MaxPlayers, l.State)
	}
	_ = tw.Flush()
}

func (o *Output) printHealthResult(h HealthResult) {
	if h.Server == "" {
		fmt.Fprintf(o.w, "Status: %s\n", h.Status)
		return
	}
	fmt.Fprintf(o.w, "Status: %s (%s, %dms)\n", h.Status, h.Server, h.LatencyMS)
}
