package response

import (
	"github.com/mcoot/wordbomb/internal/model"
)

// Health is the health check body
type Health struct {
	Status string `json:"status"`
}

// Lobby represents a public lobby in API responses
type Lobby struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	HostName    string `json:"host_name"`
	State       string `json:"state"`
}

// LobbyFromModel converts a listing entry to a response Lobby
func LobbyFromModel(e model.ListingEntry) Lobby {
	return Lobby{
		ID:          string(e.ID),
		Code:        string(e.Code),
		Name:        e.Name,
		PlayerCount: e.PlayerCount,
		MaxPlayers:  e.MaxPlayers,
		HostName:    e.HostName,
		State:       string(e.State),
	}
}

// LobbyList is the public lobby listing
type LobbyList struct {
	Lobbies []Lobby `json:"lobbies"`
}

// LobbyListFromModel converts the listing, keeping an empty list non-nil
func LobbyListFromModel(entries []model.ListingEntry) LobbyList {
	lobbies := make([]Lobby, 0, len(entries))
	for _, e := range entries {
		lobbies = append(lobbies, LobbyFromModel(e))
	}
	return LobbyList{Lobbies: lobbies}
}
