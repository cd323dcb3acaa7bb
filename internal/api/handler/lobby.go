package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/wordbomb/internal/api/response"
	"github.com/mcoot/wordbomb/internal/model"
)

// LobbyDirectory answers read-only questions about public lobbies
type LobbyDirectory interface {
	Listing(ctx context.Context) ([]model.ListingEntry, error)
	Lookup(ctx context.Context, code model.LobbyCode) (model.ListingEntry, error)
}

// LobbyHandler handles lobby-related endpoints
type LobbyHandler struct {
	lobbies LobbyDirectory
}

// NewLobbyHandler creates a new lobby handler
func NewLobbyHandler(lobbies LobbyDirectory) *LobbyHandler {
	return &LobbyHandler{lobbies: lobbies}
}

// List handles GET /api/v1/lobbies
func (h *LobbyHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.lobbies.Listing(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LobbyListFromModel(entries))
}

// Get handles GET /api/v1/lobbies/{code}
func (h *LobbyHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(mux.Vars(r)["code"])
	if code == "" {
		WriteError(w, NewInvalidRequestError("lobby code is required"))
		return
	}

	entry, err := h.lobbies.Lookup(r.Context(), model.LobbyCode(code))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LobbyFromModel(entry))
}
