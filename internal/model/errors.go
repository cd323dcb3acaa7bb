package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Identity errors
	ErrNotAuthenticated = errors.New("connection is not authenticated")
	ErrInvalidName      = errors.New("invalid player name")
	ErrPlayerNotFound   = errors.New("player not found")

	// Lobby errors
	ErrLobbyNotFound       = errors.New("lobby not found")
	ErrLobbyFull           = errors.New("lobby is full")
	ErrNotInLobby          = errors.New("player is not in lobby")
	ErrNotHost             = errors.New("player is not the host")
	ErrGameInProgress      = errors.New("game is in progress")
	ErrInsufficientPlayers = errors.New("insufficient players to start game")

	// Transport errors
	ErrInvalidPayload = errors.New("invalid payload")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrRateLimited    = errors.New("rate limited")
	ErrStopped        = errors.New("game server stopped")

	// Dictionary errors
	ErrDictionaryNotLoaded = errors.New("dictionary not loaded")
	ErrNoSyllables         = errors.New("dictionary has no syllables")
)

// RejectReason is the machine-readable cause of a turn or word rejection
type RejectReason string

const (
	RejectNotPlaying      RejectReason = "not_playing"
	RejectTurnLocked      RejectReason = "turn_locked"
	RejectNotYourTurn     RejectReason = "not_your_turn"
	RejectEliminated      RejectReason = "eliminated"
	RejectDisconnected    RejectReason = "disconnected"
	RejectInvalidInput    RejectReason = "invalid_input"
	RejectTooShort        RejectReason = "too_short"
	RejectAlreadyUsed     RejectReason = "already_used"
	RejectMissingSyllable RejectReason = "missing_syllable"
	RejectNotAWord        RejectReason = "not_a_word"
)

// Rejection is returned when a submission or keystroke is refused without
// any change to lobby state
type Rejection struct {
	Reason RejectReason
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("rejected: %s", r.Reason)
}

// Reject creates a Rejection for the given reason
func Reject(reason RejectReason) *Rejection {
	return &Rejection{Reason: reason}
}

// ErrorMessage maps an error to the text sent to clients
func ErrorMessage(err error) string {
	var rej *Rejection
	switch {
	case errors.As(err, &rej):
		return string(rej.Reason)
	case errors.Is(err, ErrNotAuthenticated):
		return "Not authenticated"
	case errors.Is(err, ErrInvalidName):
		return "Please enter a name"
	case errors.Is(err, ErrLobbyNotFound):
		return "Lobby not found"
	case errors.Is(err, ErrLobbyFull):
		return "Lobby is full"
	case errors.Is(err, ErrNotInLobby):
		return "Not in a lobby"
	case errors.Is(err, ErrNotHost):
		return "Only the host can do that"
	case errors.Is(err, ErrGameInProgress):
		return "Game already in progress"
	case errors.Is(err, ErrInsufficientPlayers):
		return "Need at least 2 ready players"
	case errors.Is(err, ErrInvalidPayload):
		return "Invalid request"
	case errors.Is(err, ErrUnknownEvent):
		return "Unknown event"
	case errors.Is(err, ErrRateLimited):
		return "Too many requests"
	case errors.Is(err, ErrNoSyllables):
		return "No word prompts available"
	default:
		return "Something went wrong"
	}
}
