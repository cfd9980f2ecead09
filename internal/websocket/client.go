package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"qcpulse/pkg/contracts/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Editor updates carry a whole
	// series, not just commands, so this is sized for data payloads.
	maxMessageSize = 1 << 20
)

// inboundMessage is what an editor client sends over the wire.
type inboundMessage struct {
	Type    string          `json:"type"`
	Samples []domain.Sample `json:"samples"`
}

// Client is the middleman between one websocket connection and the hub. Its
// id doubles as the update origin for broadcast exclusion.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	id          string
	remoteAddr  string
	connectedAt time.Time

	logger *slog.Logger
}

// NewClient creates a client around an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New().String()
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 64),
		id:          id,
		remoteAddr:  conn.RemoteAddr().String(),
		connectedAt: time.Now(),
		logger: logger.With(
			slog.String("component", "websocket.client"),
			slog.String("client_id", id),
		),
	}
}

// ID returns the client's identifier.
func (c *Client) ID() string { return c.id }

// ReadPump pumps messages from the websocket connection into the hub's update
// handler. One goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.logger.Info("Client disconnected",
			slog.Duration("connection_duration", time.Since(c.connectedAt)))
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("Unexpected close error", slog.String("error", err.Error()))
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Warn("Dropping unparseable client message",
				slog.String("error", err.Error()),
				slog.Int("size", len(raw)))
			continue
		}

		switch msg.Type {
		case TypeHeartbeat:
			// Connection is alive; the pong handler already moved the deadline.

		case TypeSeriesUpdate:
			if c.hub.onUpdate == nil {
				continue
			}
			c.logger.Info("Series update received",
				slog.Int("samples", len(msg.Samples)))
			c.hub.onUpdate(context.Background(), domain.Series(msg.Samples), c.id)

		default:
			c.logger.Debug("Ignoring client message",
				slog.String("type", msg.Type))
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection. One
// goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("Error writing message", slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS registers a freshly upgraded connection with the hub and starts its
// pumps.
func ServeWS(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	client := NewClient(hub, conn, logger)
	hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
	return client
}
