package ws

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/mcoot/wordbomb/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed between pongs before the connection is considered dead
	pongWait = 60 * time.Second

	// Time between keepalive pings
	pingPeriod = 30 * time.Second

	// Largest inbound frame accepted
	maxMessageSize = 4096

	// Buffer size for outgoing messages
	sendBufferSize = 256

	// Inbound frames per second allowed before frames are dropped
	frameRate  = 30
	frameBurst = 60
)

// Client is one websocket connection
type Client struct {
	id          model.ConnID
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	limiter     *rate.Limiter
	connectedAt time.Time
	logger      *slog.Logger
}

func newClient(id model.ConnID, hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{
		id:          id,
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		limiter:     rate.NewLimiter(frameRate, frameBurst),
		connectedAt: time.Now(),
		logger:      logger.With(slog.String("conn_id", string(id))),
	}
}

func (c *Client) connectedFor() time.Duration {
	return time.Since(c.connectedAt)
}

// readPump decodes inbound frames and hands them to handler until the
// connection fails
func (c *Client) readPump(handler Handler) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("ws read failed", slog.Any("error", err))
			}
			return
		}

		if !c.limiter.Allow() {
			c.logger.Debug("ws frame dropped - flood guard")
			continue
		}

		var env model.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			c.hub.Deliver(c.id, model.EventError, model.ErrorPayload{
				Message: model.ErrorMessage(model.ErrInvalidPayload),
			})
			continue
		}
		handler.Dispatch(c.id, env.Event, env.Data)
	}
}

// writePump drains the send buffer and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
