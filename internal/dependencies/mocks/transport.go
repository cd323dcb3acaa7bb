package mocks

import (
	"encoding/json"
	"sync"

	"github.com/mcoot/wordbomb/internal/model"
)

// Message is one event captured by MockTransport
type Message struct {
	Conn    model.ConnID  // set for Deliver
	Lobby   model.LobbyID // set for Broadcast
	All     bool          // set for BroadcastAll
	Event   string
	Payload any
}

// Decode unmarshals the payload into v via a JSON round trip
func (m Message) Decode(v any) error {
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// MockTransport records every outbound event and room change
type MockTransport struct {
	mu       sync.Mutex
	Messages []Message
	Rooms    map[model.LobbyID]map[model.ConnID]bool
}

// NewMockTransport creates an empty MockTransport
func NewMockTransport() *MockTransport {
	return &MockTransport{Rooms: make(map[model.LobbyID]map[model.ConnID]bool)}
}

func (t *MockTransport) Deliver(conn model.ConnID, event string, payload any) {
	t.record(Message{Conn: conn, Event: event, Payload: payload})
}

func (t *MockTransport) Broadcast(lobby model.LobbyID, event string, payload any) {
	t.record(Message{Lobby: lobby, Event: event, Payload: payload})
}

func (t *MockTransport) BroadcastAll(event string, payload any) {
	t.record(Message{All: true, Event: event, Payload: payload})
}

func (t *MockTransport) Join(conn model.ConnID, lobby model.LobbyID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Rooms[lobby] == nil {
		t.Rooms[lobby] = make(map[model.ConnID]bool)
	}
	t.Rooms[lobby][conn] = true
}

func (t *MockTransport) Leave(conn model.ConnID, lobby model.LobbyID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.Rooms[lobby], conn)
	if len(t.Rooms[lobby]) == 0 {
		delete(t.Rooms, lobby)
	}
}

// InRoom reports whether conn is a member of lobby's room
func (t *MockTransport) InRoom(conn model.ConnID, lobby model.LobbyID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Rooms[lobby][conn]
}

// Events returns every recorded message with the given event name
func (t *MockTransport) Events(event string) []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Message
	for _, m := range t.Messages {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}

// Last returns the most recent message with the given event name
func (t *MockTransport) Last(event string) (Message, bool) {
	msgs := t.Events(event)
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)-1], true
}

// DeliveredTo returns the messages delivered directly to conn
func (t *MockTransport) DeliveredTo(conn model.ConnID) []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Message
	for _, m := range t.Messages {
		if m.Conn == conn {
			out = append(out, m)
		}
	}
	return out
}

// Reset drops all recorded messages, keeping room membership
func (t *MockTransport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Messages = nil
}

func (t *MockTransport) record(m Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Messages = append(t.Messages, m)
}
