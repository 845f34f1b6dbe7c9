package notifications

import (
	"context"
	"errors"
	"sync"

	"campus/internal/middleware"
	"campus/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerUser = 12
	maxTotalConns   = 10000
)

// Connection limit errors returned by Register.
var (
	ErrServerFull  = errors.New("server connection limit reached")
	ErrUserLimit   = errors.New("user connection limit reached")
	ErrHubShutDown = errors.New("hub is shut down")
)

// VariantHub tracks websocket clients per variant and delivers variant events to them.
type VariantHub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	perUser    map[uint]int
	totalConns int
	closed     bool
}

// NewVariantHub creates an empty hub.
func NewVariantHub() *VariantHub {
	return &VariantHub{
		conns:   make(map[uint]map[*Client]struct{}),
		perUser: make(map[uint]int),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *VariantHub) Name() string { return "variant hub" }

// Register adds a connection for userID watching variantID.
func (h *VariantHub) Register(variantID, userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubShutDown
	}
	if h.totalConns >= maxTotalConns {
		return nil, ErrServerFull
	}
	if h.perUser[userID] >= maxConnsPerUser {
		return nil, ErrUserLimit
	}

	m, ok := h.conns[variantID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[variantID] = m
	}
	client := NewClient(h, conn, userID, variantID)
	m[client] = struct{}{}
	h.perUser[userID]++
	h.totalConns++
	observability.WebSocketConnectionsTotal.Inc()
	return client, nil
}

// UnregisterClient removes a client. Unknown clients are ignored.
func (h *VariantHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[client.VariantID]
	if !ok {
		return
	}
	if _, exists := m[client]; !exists {
		return
	}
	delete(m, client)
	if len(m) == 0 {
		delete(h.conns, client.VariantID)
	}
	h.perUser[client.UserID]--
	if h.perUser[client.UserID] <= 0 {
		delete(h.perUser, client.UserID)
	}
	h.totalConns--
	observability.WebSocketConnectionsTotal.Dec()
}

// Broadcast sends payload to every client watching variantID.
func (h *VariantHub) Broadcast(variantID uint, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[variantID] {
		c.TrySend(payload)
	}
}

// Watchers returns the number of clients watching variantID.
func (h *VariantHub) Watchers(variantID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[variantID])
}

// StartWiring subscribes the hub to every variant channel of n.
func (h *VariantHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartVariantSubscriber(ctx, h.Dispatch)
}

// Dispatch routes one pub/sub message to the clients of its variant.
func (h *VariantHub) Dispatch(channel, payload string) {
	variantID, ok := ParseVariantChannel(channel)
	if !ok {
		middleware.Logger.Warn("invalid variant channel", "channel", channel)
		return
	}
	h.Broadcast(variantID, []byte(payload))
}

// Shutdown closes every connection with a going-away frame.
func (h *VariantHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	for variantID, clients := range h.conns {
		for client := range clients {
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")); err != nil {
				middleware.Logger.Debug("write close frame failed", "variant_id", variantID, "error", err)
			}
			_ = client.Conn.Close()
		}
	}
	observability.WebSocketConnectionsTotal.Sub(float64(h.totalConns))
	h.conns = make(map[uint]map[*Client]struct{})
	h.perUser = make(map[uint]int)
	h.totalConns = 0
	return nil
}
