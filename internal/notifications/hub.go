package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"sherise/internal/middleware"
	"sherise/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

var (
	ErrServerConnLimit = errors.New("server connection limit reached")
	ErrUserConnLimit   = errors.New("user connection limit reached")
)

// Hub maps userID -> connected event stream clients.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	totalConns int
	closed     bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[uint]map[*Client]struct{}),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "event hub" }

// Register a connection for a given userID. Returns the Client or error if limits exceeded.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.totalConns >= maxTotalConns {
		return nil, ErrServerConnLimit
	}

	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		return nil, ErrUserConnLimit
	}

	client := NewClient(h, conn, userID)
	m[client] = struct{}{}
	h.totalConns++
	observability.WebSocketConnectionsTotal.Inc()
	return client, nil
}

// UnregisterClient removes a client; unknown clients are ignored.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.conns[client.UserID]
	if !ok {
		return
	}
	if _, exists := m[client]; exists {
		delete(m, client)
		h.totalConns--
		observability.WebSocketConnectionsTotal.Dec()
	}
	if len(m) == 0 {
		delete(h.conns, client.UserID)
	}
}

// Broadcast sends message to all connections for userID
func (h *Hub) Broadcast(userID uint, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[userID] {
		c.TrySend(message)
	}
}

// BroadcastAll sends message to every connected websocket client.
func (h *Hub) BroadcastAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, clients := range h.conns {
		for c := range clients {
			c.TrySend(message)
		}
	}
}

// Deliver routes an event: shared events go to everyone, user events to that user's clients.
func (h *Hub) Deliver(ctx context.Context, e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "Failed to encode event for websocket clients",
			slog.String("event", e.Name),
			slog.String("error", err.Error()),
		)
		return
	}
	if e.IsShared() {
		h.BroadcastAll(payload)
		return
	}
	userID, ok := e.UserID()
	if !ok {
		middleware.Logger.WarnContext(ctx, "Event with unroutable scope", slog.String("scope", e.Scope))
		return
	}
	h.Broadcast(userID, payload)
}

// Attach subscribes the hub to every event on bus.
func (h *Hub) Attach(bus *Bus) (detach func()) {
	return bus.Subscribe(AllEvents, h.Deliver)
}

// ConnectionCount returns the number of registered clients.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// Shutdown closes every client's send queue. Each WritePump then writes a
// going-away close frame and closes its connection, so only WritePump ever writes.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	for userID, userConns := range h.conns {
		for client := range userConns {
			observability.WebSocketConnectionsTotal.Dec()
			client.closeSend()
			middleware.Logger.Debug("Closing event stream",
				slog.Uint64("user_id", uint64(userID)),
			)
		}
	}
	h.conns = make(map[uint]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
