package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/wordbomb/internal/api/handler"
	"github.com/mcoot/wordbomb/internal/api/middleware"
	"github.com/mcoot/wordbomb/internal/api/response"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger  *slog.Logger
	Lobbies handler.LobbyDirectory
	// Sockets serves the websocket endpoint; nil leaves /ws unrouted
	Sockets http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	lobbyHandler := handler.NewLobbyHandler(cfg.Lobbies)

	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(loggingMiddleware)
	api.Use(recoveryMiddleware)

	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/lobbies", lobbyHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/lobbies/{code}", lobbyHandler.Get).Methods(http.MethodGet)

	if cfg.Sockets != nil {
		ws := r.PathPrefix("/ws").Subrouter()
		ws.Use(loggingMiddleware)
		ws.Use(recoveryMiddleware)
		ws.Handle("", cfg.Sockets).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
