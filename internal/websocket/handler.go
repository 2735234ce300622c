package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"

	"ai-orchestrator-be/internal/event"
	"ai-orchestrator-be/internal/eventbus"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/internal/pkg/serverutils"
	"ai-orchestrator-be/internal/service"
)

const authWait = 10 * time.Second

// Gateway terminates realtime connections: it authenticates them, feeds audio
// into the ingest pipeline and relays session events back out.
type Gateway struct {
	registry     service.IRegistryService
	ingest       service.IIngestService
	orchestrator service.IOrchestratorService
	bus          eventbus.Bus
	log          logger.ILogger
	jwtSecret    string
}

func NewGateway(
	registry service.IRegistryService,
	ingest service.IIngestService,
	orchestrator service.IOrchestratorService,
	bus eventbus.Bus,
	log logger.ILogger,
	jwtSecret string,
) *Gateway {
	return &Gateway{
		registry:     registry,
		ingest:       ingest,
		orchestrator: orchestrator,
		bus:          bus,
		log:          log,
		jwtSecret:    jwtSecret,
	}
}

type authMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type controlMessage struct {
	Type string `json:"type"`
}

func (g *Gateway) closeWithReason(conn *websocket.Conn, reason string) {
	payload, _ := json.Marshal(map[string]string{"type": "error", "message": reason})
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.TextMessage, payload)
	conn.Close()
}

// Handle runs the connection lifecycle. The first client message must be an
// auth payload carrying a session-scoped connection token.
func (g *Gateway) Handle(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(authWait))

	_, raw, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return
	}

	var auth authMessage
	if err := json.Unmarshal(raw, &auth); err != nil || auth.Type != "auth" {
		g.closeWithReason(conn, "Expected auth message")
		return
	}

	claims, err := serverutils.VerifyConnectionToken(g.jwtSecret, auth.Token)
	if err != nil {
		g.closeWithReason(conn, "Authentication failed")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := g.registry.Resolve(ctx, claims.SessionId); err != nil {
		g.closeWithReason(conn, "Session not available")
		return
	}

	client := newClient(conn, claims.UserId, claims.SessionId, g.log)

	events, err := g.bus.Subscribe(ctx, claims.SessionId)
	if err != nil {
		g.closeWithReason(conn, "Failed to attach to session")
		return
	}

	go client.writePump(ctx)
	go g.forwardEvents(ctx, client, events)

	// Acknowledge directly; the bus only carries events every subscriber of
	// the session should see.
	if payload, err := event.Encode(event.AuthSuccess{}); err == nil {
		client.enqueue(payload)
		g.registry.AppendOutbound(ctx, claims.SessionId, string(payload))
	}

	if err := g.ingest.BeginUtterance(ctx, claims.SessionId); err != nil {
		g.log.Error("Gateway", "Failed to open utterance", map[string]interface{}{
			"session_id": claims.SessionId.String(),
			"error":      err.Error(),
		})
	}

	g.log.Info("Gateway", "Client connected", map[string]interface{}{
		"session_id": claims.SessionId.String(),
		"user_id":    claims.UserId.String(),
	})

	g.readLoop(ctx, client)

	g.ingest.Abort(claims.SessionId)
	g.log.Info("Gateway", "Client disconnected", map[string]interface{}{
		"session_id": claims.SessionId.String(),
	})
}

func (g *Gateway) forwardEvents(ctx context.Context, client *Client, events <-chan event.Event) {
	for ev := range events {
		payload, err := event.Encode(ev)
		if err != nil {
			continue
		}
		if !client.enqueue(payload) {
			g.log.Warn("Gateway", "Client send buffer full, dropping event", map[string]interface{}{
				"session_id": client.SessionID.String(),
				"event_type": ev.EventType(),
			})
			continue
		}
		g.registry.AppendOutbound(ctx, client.SessionID, string(payload))
	}
}

func (g *Gateway) readLoop(ctx context.Context, client *Client) {
	conn := client.Conn
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.log.Debug("Gateway", "Unexpected close", map[string]interface{}{
					"session_id": client.SessionID.String(),
					"error":      err.Error(),
				})
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			g.handleBinary(ctx, client, raw)
		case websocket.TextMessage:
			g.handleControl(ctx, client, raw)
		}
	}
}

func (g *Gateway) handleBinary(ctx context.Context, client *Client, raw []byte) {
	header, payload, err := DecodeFrame(raw)
	if err != nil {
		g.log.Warn("Gateway", "Malformed binary frame", map[string]interface{}{
			"session_id": client.SessionID.String(),
			"error":      err.Error(),
		})
		return
	}

	switch header.Type {
	case FrameTypeAudio:
		if err := g.ingest.PushAudio(client.SessionID, payload); err != nil {
			g.log.Warn("Gateway", "Audio push rejected", map[string]interface{}{
				"session_id": client.SessionID.String(),
				"error":      err.Error(),
			})
		}
	case FrameTypeEndTurn:
		g.endTurn(ctx, client)
	default:
		g.log.Warn("Gateway", "Unknown frame type", map[string]interface{}{
			"session_id": client.SessionID.String(),
			"frame_type": header.Type,
		})
	}
}

func (g *Gateway) handleControl(ctx context.Context, client *Client, raw []byte) {
	var msg controlMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		g.log.Warn("Gateway", "Malformed control message", map[string]interface{}{
			"session_id": client.SessionID.String(),
			"error":      err.Error(),
		})
		return
	}

	switch msg.Type {
	case FrameTypeEndTurn:
		g.endTurn(ctx, client)
	default:
		g.log.Warn("Gateway", "Unknown control type", map[string]interface{}{
			"session_id": client.SessionID.String(),
			"msg_type":   msg.Type,
		})
	}
}

func (g *Gateway) endTurn(ctx context.Context, client *Client) {
	transcript, err := g.ingest.EndUtterance(ctx, client.SessionID)
	if err != nil {
		g.log.Warn("Gateway", "End of utterance failed", map[string]interface{}{
			"session_id": client.SessionID.String(),
			"error":      err.Error(),
		})
	} else {
		// The turn must survive a client disconnect once the transcript is
		// in hand, hence the detached context.
		go g.orchestrator.HandleEndOfTurn(context.Background(), client.SessionID, transcript)
	}

	// Re-arm the recognizer for the next utterance.
	if err := g.ingest.BeginUtterance(ctx, client.SessionID); err != nil {
		g.log.Error("Gateway", "Failed to reopen utterance", map[string]interface{}{
			"session_id": client.SessionID.String(),
			"error":      err.Error(),
		})
	}
}
