package model

import "strings"

// LobbyID is the internal identifier of a lobby
type LobbyID string

// LobbyCode is a human-readable identifier for joining lobbies
type LobbyCode string

// Normalize upper-cases and trims a code so lookups are case-insensitive
func (c LobbyCode) Normalize() LobbyCode {
	return LobbyCode(strings.ToUpper(strings.TrimSpace(string(c))))
}

// LobbyState represents the current state of a lobby
type LobbyState string

const (
	LobbyStateWaiting  LobbyState = "waiting"  // Players gathering, no turn timer
	LobbyStatePlaying  LobbyState = "playing"  // Game in progress
	LobbyStateFinished LobbyState = "finished" // Game over, reset pending
)

// Settings bounds
const (
	MinMaxPlayers    = 2
	MaxMaxPlayers    = 12
	MinStartLives    = 1
	MaxStartLives    = 5
	MinTurnTime      = 5
	MaxTurnTime      = 30
	MinMinWordLength = 2
	MaxMinWordLength = 5
)

// Settings holds the host-configurable rules of a lobby
type Settings struct {
	MaxPlayers    int  `json:"maxPlayers"`
	StartLives    int  `json:"startLives"`
	TurnTime      int  `json:"turnTime"` // seconds
	MinWordLength int  `json:"minWordLength"`
	IsPublic      bool `json:"isPublic"`
}

// DefaultSettings returns the settings a new lobby starts with
func DefaultSettings() Settings {
	return Settings{
		MaxPlayers:    8,
		StartLives:    3,
		TurnTime:      10,
		MinWordLength: 3,
		IsPublic:      true,
	}
}

// SettingsUpdate is a partial settings change; nil fields are left as is
type SettingsUpdate struct {
	MaxPlayers    *int  `json:"maxPlayers,omitempty"`
	StartLives    *int  `json:"startLives,omitempty"`
	TurnTime      *int  `json:"turnTime,omitempty"`
	MinWordLength *int  `json:"minWordLength,omitempty"`
	IsPublic      *bool `json:"isPublic,omitempty"`
}

// Apply returns s with the update applied and every field clamped to its bounds.
// MaxPlayers is never lowered below seated.
func (s Settings) Apply(u SettingsUpdate, seated int) Settings {
	if u.MaxPlayers != nil {
		s.MaxPlayers = *u.MaxPlayers
	}
	if u.StartLives != nil {
		s.StartLives = *u.StartLives
	}
	if u.TurnTime != nil {
		s.TurnTime = *u.TurnTime
	}
	if u.MinWordLength != nil {
		s.MinWordLength = *u.MinWordLength
	}
	if u.IsPublic != nil {
		s.IsPublic = *u.IsPublic
	}
	s = s.Clamp()
	if s.MaxPlayers < seated {
		s.MaxPlayers = clamp(seated, MinMaxPlayers, MaxMaxPlayers)
	}
	return s
}

// Clamp forces every field into its allowed range
func (s Settings) Clamp() Settings {
	s.MaxPlayers = clamp(s.MaxPlayers, MinMaxPlayers, MaxMaxPlayers)
	s.StartLives = clamp(s.StartLives, MinStartLives, MaxStartLives)
	s.TurnTime = clamp(s.TurnTime, MinTurnTime, MaxTurnTime)
	s.MinWordLength = clamp(s.MinWordLength, MinMinWordLength, MaxMinWordLength)
	return s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ListingEntry is one row of the public lobby listing
type ListingEntry struct {
	ID          LobbyID    `json:"id"`
	Code        LobbyCode  `json:"code"`
	Name        string     `json:"name"`
	PlayerCount int        `json:"playerCount"`
	MaxPlayers  int        `json:"maxPlayers"`
	HostName    string     `json:"hostName"`
	State       LobbyState `json:"state"`
}

// Ranking is one row of the end-of-game standings
type Ranking struct {
	Rank           int      `json:"rank"`
	PlayerID       PlayerID `json:"playerId"`
	Name           string   `json:"name"`
	Score          int      `json:"score"`
	Lives          int      `json:"lives"`
	WordsCompleted int      `json:"wordsCompleted"`
}
