package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// PlayerID is the durable identity of a player. It survives reconnects.
type PlayerID string

// ConnID identifies a single transport connection
type ConnID string

const (
	// MaxNameLength bounds player display names
	MaxNameLength = 20
	// MaxLobbyNameLength bounds lobby names
	MaxLobbyNameLength = 30
	// MaxInputLength bounds typed and submitted text
	MaxInputLength = 30

	// PlaceholderName stands in for a missing name until the client sends one
	PlaceholderName = "Player"
)

// Player is a seat within a lobby
type Player struct {
	ID             PlayerID   `json:"id"`
	Name           string     `json:"name"`
	Avatar         string     `json:"avatar"`
	Color          string     `json:"color"`
	Lives          int        `json:"lives"`
	Score          int        `json:"score"`
	WordsCompleted int        `json:"wordsCompleted"`
	IsConnected    bool       `json:"isConnected"`
	DisconnectedAt *time.Time `json:"-"`
	IsReady        bool       `json:"isReady"`
	CurrentInput   string     `json:"currentInput"`
	InGame         bool       `json:"inGame"`
}

// IsAlive reports whether the player still has lives left
func (p *Player) IsAlive() bool {
	return p.Lives > 0
}

// Identity is the durable record behind a player, independent of any lobby seat
type Identity struct {
	ID             PlayerID
	Name           string
	LobbyID        LobbyID // empty when not in a lobby
	ConnID         ConnID  // empty while disconnected
	DisconnectedAt *time.Time
}

// IsConnected reports whether the identity is bound to a live connection
func (i *Identity) IsConnected() bool {
	return i.ConnID != ""
}

// CleanName trims whitespace and truncates to max runes
func CleanName(name string, max int) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) <= max {
		return name
	}
	runes := []rune(name)
	return strings.TrimSpace(string(runes[:max]))
}
