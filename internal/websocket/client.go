package websocket

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"ai-orchestrator-be/internal/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // audio frames are large
)

// Client is a middleman between one websocket connection and the session
// event bus.
type Client struct {
	Conn      *websocket.Conn
	UserID    uuid.UUID
	SessionID uuid.UUID

	// Buffered channel of outbound messages.
	Send chan []byte

	log logger.ILogger
}

func newClient(conn *websocket.Conn, userId, sessionId uuid.UUID, log logger.ILogger) *Client {
	return &Client{
		Conn:      conn,
		UserID:    userId,
		SessionID: sessionId,
		Send:      make(chan []byte, 256),
		log:       log,
	}
}

// writePump pumps messages from the Send channel to the websocket connection.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debug("Gateway", "Write failed, dropping connection", map[string]interface{}{
					"session_id": c.SessionID.String(),
					"error":      err.Error(),
				})
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// enqueue offers a payload to the write pump without blocking the caller. A
// saturated client simply misses the event.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}
