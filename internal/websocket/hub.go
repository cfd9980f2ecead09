package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"qcpulse/pkg/contracts/domain"
)

// Message type constants shared with the browser client.
const (
	TypeConnection     = "connection"
	TypeSeriesSnapshot = "series:snapshot"
	TypeSeriesUpdate   = "series:update"
	TypeError          = "error"
	TypeHeartbeat      = "heartbeat"
)

// UpdateHandler receives editor-submitted series updates read off a client
// connection. The origin is the submitting client's id, used for broadcast
// exclusion.
type UpdateHandler func(ctx context.Context, series domain.Series, origin string)

// SnapshotProvider supplies the current authoritative series for greeting a
// newly connected viewer.
type SnapshotProvider func() domain.Series

// envelope is the wire format of every server-to-client message.
type envelope struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// outbound is one broadcast with an optional excluded origin.
type outbound struct {
	payload []byte
	exclude string
}

// Hub maintains the set of active viewer clients and fans series snapshots
// out to them. Sends are fire-and-forget: a client whose buffer is full is
// dropped rather than allowed to stall the broadcast loop.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	snapshot SnapshotProvider
	onUpdate UpdateHandler

	logger *slog.Logger

	quit    chan struct{}
	running bool
}

// NewHub creates a hub. SetSnapshotProvider and OnIncomingUpdate must be
// wired before Start.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		quit:       make(chan struct{}),
	}
}

// SetSnapshotProvider wires the source of the greeting snapshot.
func (h *Hub) SetSnapshotProvider(fn SnapshotProvider) { h.snapshot = fn }

// OnIncomingUpdate registers the handler for editor-submitted updates.
func (h *Hub) OnIncomingUpdate(fn UpdateHandler) { h.onUpdate = fn }

// Start launches the hub's run loop. Idempotent.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()
	go h.run()
}

// Stop shuts the run loop down and disconnects every client. Idempotent.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()

			connectedClients.Set(float64(count))
			h.logger.Info("Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			h.greet(client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			connectedClients.Set(float64(count))
			h.logger.Info("Client unregistered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.Duration("connection_duration", time.Since(client.connectedAt)))

		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

// greet sends the current authoritative series to a freshly connected client
// so it starts from a consistent copy.
func (h *Hub) greet(client *Client) {
	var series domain.Series
	if h.snapshot != nil {
		series = h.snapshot()
	}
	payload, err := json.Marshal(envelope{
		Type:      TypeSeriesSnapshot,
		Data:      series,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		h.logger.Error("Error marshaling greeting snapshot", slog.String("error", err.Error()))
		return
	}
	select {
	case client.send <- payload:
	default:
		h.logger.Warn("Failed to greet client, send buffer full",
			slog.String("client_id", client.id))
	}
}

// fanOut delivers one broadcast to every registered client except the
// excluded origin, dropping clients whose buffer is full.
func (h *Hub) fanOut(msg outbound) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	sent, dropped, excluded := 0, 0, 0
	for _, client := range clients {
		if msg.exclude != "" && client.id == msg.exclude {
			excluded++
			continue
		}
		select {
		case client.send <- msg.payload:
			sent++
		default:
			// Slow consumer; cut it loose rather than block the loop.
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			dropped++
			h.logger.Warn("Client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}

	broadcastsTotal.Inc()
	if dropped > 0 {
		droppedClients.Add(float64(dropped))
	}
	h.logger.Debug("Broadcast complete",
		slog.Int("sent", sent),
		slog.Int("dropped", dropped),
		slog.Int("excluded", excluded),
		slog.Int("payload_size", len(msg.payload)))
}

// BroadcastSeries distributes a series snapshot to all connected clients,
// skipping the origin client when excludeOrigin is non-empty. It implements
// the coordinator's Broadcaster collaborator.
func (h *Hub) BroadcastSeries(series domain.Series, excludeOrigin string) {
	payload, err := json.Marshal(envelope{
		Type:      TypeSeriesSnapshot,
		Data:      series,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		h.logger.Error("Error marshaling series snapshot", slog.String("error", err.Error()))
		return
	}
	select {
	case h.broadcast <- outbound{payload: payload, exclude: excludeOrigin}:
	case <-h.quit:
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
