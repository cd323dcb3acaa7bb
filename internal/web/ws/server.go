package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/wordbomb/internal/model"
)

// Handler receives connection lifecycle notifications and inbound events.
// Calls arrive from per-connection goroutines.
type Handler interface {
	Connect(conn model.ConnID)
	Disconnect(conn model.ConnID)
	Dispatch(conn model.ConnID, event string, data json.RawMessage)
}

// Server upgrades HTTP requests to websocket clients of a Hub
type Server struct {
	hub      *Hub
	handler  Handler
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewServer creates a Server
func NewServer(hub *Hub, handler Handler, logger *slog.Logger) *Server {
	return &Server{
		hub:     hub,
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "ws")),
	}
}

// ServeHTTP upgrades the connection and serves it until it closes
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response
		s.logger.Warn("ws upgrade failed", slog.Any("error", err))
		return
	}

	client := newClient(model.ConnID(uuid.NewString()), s.hub, conn, s.logger)
	s.hub.register(client)
	s.handler.Connect(client.id)

	go client.writePump()
	client.readPump(s.handler)

	s.hub.unregister(client)
	s.handler.Disconnect(client.id)
}
