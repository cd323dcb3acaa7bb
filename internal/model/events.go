package model

import "encoding/json"

// Inbound events (client to server)
const (
	EventAuth          = "auth"
	EventRestore       = "restore"
	EventLobbyCreate   = "lobby.create"
	EventLobbyJoin     = "lobby.join"
	EventLobbyLeave    = "lobby.leave"
	EventLobbyRefresh  = "lobby.refresh"
	EventLobbySettings = "lobby.settings"
	EventGameStart     = "game.start"
	EventGameTyping    = "game.typing"
	EventGameSubmit    = "game.submit"
	EventGameReady     = "game.ready"
)

// Outbound events (server to client)
const (
	EventLobbyList          = "lobby.list"
	EventPlayerAuthed       = "player.authed"
	EventPlayerRestored     = "player.restored"
	EventPlayerRestoreFail  = "player.restore_failed"
	EventLobbyJoined        = "lobby.joined"
	EventLobbyLeft          = "lobby.left"
	EventError              = "error"
	EventGameState          = "game.state"
	EventGameTimer          = "game.timer"
	EventGameExplosion      = "game.explosion"
	EventGameWordSuccess    = "game.word_success"
	EventGameWordRejected   = "game.word_rejected"
	EventGameEnd            = "game.end"
	// EventGameTyping is shared by both directions
)

// Envelope is the wire frame wrapping every event
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound payloads

type AuthPayload struct {
	PlayerID   PlayerID `json:"playerId,omitempty"`
	PlayerName string   `json:"playerName"`
}

type RestorePayload struct {
	PlayerID   PlayerID  `json:"playerId,omitempty"`
	PlayerName string    `json:"playerName"`
	LobbyID    LobbyID   `json:"lobbyId,omitempty"`
	LobbyCode  LobbyCode `json:"lobbyCode,omitempty"`
}

type CreateLobbyPayload struct {
	PlayerName string `json:"playerName"`
	LobbyName  string `json:"lobbyName"`
	IsPublic   bool   `json:"isPublic"`
}

type JoinLobbyPayload struct {
	LobbyCode  LobbyCode `json:"lobbyCode"`
	PlayerName string    `json:"playerName"`
}

type TypingPayload struct {
	Text string `json:"text"`
}

type SubmitPayload struct {
	Word string `json:"word"`
}

// Outbound payloads

type AuthedPayload struct {
	PlayerID    PlayerID `json:"playerId"`
	PlayerName  string   `json:"playerName"`
	IsReconnect bool     `json:"isReconnect"`
}

type RestoredPayload struct {
	PlayerID  PlayerID  `json:"playerId"`
	InLobby   bool      `json:"inLobby"`
	LobbyID   LobbyID   `json:"lobbyId,omitempty"`
	LobbyCode LobbyCode `json:"lobbyCode,omitempty"`
	LobbyName string    `json:"lobbyName,omitempty"`
}

type RestoreFailedPayload struct {
	Reason      string   `json:"reason"`
	NewPlayerID PlayerID `json:"newPlayerId"`
}

type LobbyJoinedPayload struct {
	LobbyID   LobbyID   `json:"lobbyId"`
	LobbyCode LobbyCode `json:"lobbyCode"`
	LobbyName string    `json:"lobbyName"`
}

type LobbyLeftPayload struct {
	LobbyID LobbyID `json:"lobbyId"`
	Reason  string  `json:"reason,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type GameStatePayload struct {
	LobbyID          LobbyID    `json:"lobbyId"`
	LobbyCode        LobbyCode  `json:"lobbyCode"`
	LobbyName        string     `json:"lobbyName"`
	State            LobbyState `json:"state"`
	Players          []Player   `json:"players"`
	HostID           PlayerID   `json:"hostId"`
	CurrentTurnIndex int        `json:"currentTurnIndex"`
	CurrentSyllable  string     `json:"currentSyllable"`
	TimerValue       float64    `json:"timerValue"`
	TimerMax         int        `json:"timerMax"`
	TurnLocked       bool       `json:"turnLocked"`
	Settings         Settings   `json:"settings"`
}

type TimerPayload struct {
	TimerValue float64 `json:"timerValue"`
	TimerMax   int     `json:"timerMax"`
}

type TypingBroadcastPayload struct {
	PlayerID PlayerID `json:"playerId"`
	Text     string   `json:"text"`
}

// PlayerLives is the per-player lives summary sent with an explosion
type PlayerLives struct {
	ID    PlayerID `json:"id"`
	Lives int      `json:"lives"`
}

type ExplosionPayload struct {
	PlayerID PlayerID      `json:"playerId"`
	Players  []PlayerLives `json:"players"`
}

type WordSuccessPayload struct {
	PlayerID   PlayerID `json:"playerId"`
	Word       string   `json:"word"`
	BonusScore int      `json:"bonusScore"`
}

type WordRejectedPayload struct {
	Reason RejectReason `json:"reason"`
}

// Winner identifies the player who won a game
type Winner struct {
	ID    PlayerID `json:"id"`
	Name  string   `json:"name"`
	Score int      `json:"score"`
}

type GameEndPayload struct {
	Winner   *Winner   `json:"winner"`
	Rankings []Ranking `json:"rankings"`
}
