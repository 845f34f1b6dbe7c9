package notifications

import (
	"time"

	"campus/internal/middleware"
	"campus/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames; anything larger is a misbehaving peer.
	maxMessageSize = 4096

	sendBuffer = 64
)

var dropNotice = []byte(`{"type":"events.dropped","payload":{"reason":"buffer_full"}}`)

// WSHub is implemented by hubs that own clients.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is one websocket connection watching a variant.
type Client struct {
	Hub       WSHub
	Conn      *websocket.Conn
	Send      chan []byte
	UserID    uint
	VariantID uint
}

// NewClient creates a Client with a buffered outbound queue.
func NewClient(hub WSHub, conn *websocket.Conn, userID, variantID uint) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		UserID:    userID,
		VariantID: variantID,
		Send:      make(chan []byte, sendBuffer),
	}
}

// ReadPump drains the connection so pongs and close frames are processed.
// It returns when the peer goes away.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("websocket read failed",
					"user_id", c.UserID, "variant_id", c.VariantID, "error", err)
			}
			return
		}
	}
}

// WritePump forwards queued events to the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues message without blocking. A full queue drops the message and
// tells the client to re-fetch.
func (c *Client) TrySend(message []byte) {
	defer func() {
		if r := recover(); r != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
		}
	}()

	select {
	case c.Send <- message:
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
		middleware.Logger.Warn("websocket buffer full, dropped event",
			"user_id", c.UserID, "variant_id", c.VariantID, "hub", c.Hub.Name())
		select {
		case c.Send <- dropNotice:
		default:
		}
	}
}
