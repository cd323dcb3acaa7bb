package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/mcoot/wordbomb/internal/model"
)

// frame is the wire shape of every outbound message
type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func encode(event string, payload any) ([]byte, error) {
	return json.Marshal(frame{Event: event, Data: payload})
}

// Hub tracks websocket clients and the lobby rooms they are subscribed to.
// Sends never block: a client whose buffer is full misses the message.
type Hub struct {
	mu      sync.RWMutex
	clients map[model.ConnID]*Client
	rooms   map[model.LobbyID]map[model.ConnID]*Client
	logger  *slog.Logger
}

// NewHub creates an empty Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[model.ConnID]*Client),
		rooms:   make(map[model.LobbyID]map[model.ConnID]*Client),
		logger:  logger.With(slog.String("component", "ws")),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	clientCount := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("ws client registered",
		slog.String("conn_id", string(c.id)),
		slog.Int("total_clients", clientCount))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	for lobby, members := range h.rooms {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.rooms, lobby)
		}
	}
	close(c.send)
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("ws client unregistered",
		slog.String("conn_id", string(c.id)),
		slog.Duration("connection_duration", c.connectedFor()),
		slog.Int("total_clients", clientCount))
}

// Deliver sends an event to a single connection
func (h *Hub) Deliver(conn model.ConnID, event string, payload any) {
	msg, ok := h.encode(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[conn]; ok {
		h.push(c, event, msg)
	}
}

// Broadcast sends an event to every connection in a lobby's room
func (h *Hub) Broadcast(lobby model.LobbyID, event string, payload any) {
	msg, ok := h.encode(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[lobby] {
		h.push(c, event, msg)
	}
}

// BroadcastAll sends an event to every connection
func (h *Hub) BroadcastAll(event string, payload any) {
	msg, ok := h.encode(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.push(c, event, msg)
	}
}

// Join subscribes a connection to a lobby's room
func (h *Hub) Join(conn model.ConnID, lobby model.LobbyID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[conn]
	if !ok {
		return
	}
	if h.rooms[lobby] == nil {
		h.rooms[lobby] = make(map[model.ConnID]*Client)
	}
	h.rooms[lobby][conn] = c
}

// Leave unsubscribes a connection from a lobby's room
func (h *Hub) Leave(conn model.ConnID, lobby model.LobbyID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[lobby]
	if !ok {
		return
	}
	delete(members, conn)
	if len(members) == 0 {
		delete(h.rooms, lobby)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of connections subscribed to a lobby
func (h *Hub) RoomSize(lobby model.LobbyID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[lobby])
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}
	h.logger.Info("ws hub closed", slog.Int("disconnected_clients", len(clients)))
}

func (h *Hub) encode(event string, payload any) ([]byte, bool) {
	msg, err := encode(event, payload)
	if err != nil {
		h.logger.Error("ws failed to encode message", slog.String("event", event), slog.Any("error", err))
		return nil, false
	}
	return msg, true
}

// push must be called with h.mu held
func (h *Hub) push(c *Client, event string, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.logger.Warn("ws message dropped - client buffer full",
			slog.String("conn_id", string(c.id)),
			slog.String("event", event))
	}
}
