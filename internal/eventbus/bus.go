package eventbus

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"ai-orchestrator-be/internal/event"
	"ai-orchestrator-be/internal/pkg/logger"
)

// Bus is the per-session fanout channel between the pipeline and connected
// clients. Delivery is best effort: no replay, no persistence.
type Bus interface {
	Publish(ctx context.Context, sessionId uuid.UUID, ev event.Event) error
	Subscribe(ctx context.Context, sessionId uuid.UUID) (<-chan event.Event, error)
	Close() error
}

func topicFor(sessionId uuid.UUID) string {
	return fmt.Sprintf("session.events.%s", sessionId)
}

// WatermillBus routes session events through an in-process gochannel pub/sub.
type WatermillBus struct {
	pubsub *gochannel.GoChannel
	log    logger.ILogger
}

var _ Bus = &WatermillBus{}

func NewWatermillBus(log logger.ILogger) *WatermillBus {
	return &WatermillBus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{}),
		log:    log,
	}
}

func (b *WatermillBus) Publish(ctx context.Context, sessionId uuid.UUID, ev event.Event) error {
	payload, err := event.Encode(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", ev.EventType(), err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return b.pubsub.Publish(topicFor(sessionId), msg)
}

func (b *WatermillBus) Subscribe(ctx context.Context, sessionId uuid.UUID) (<-chan event.Event, error) {
	messages, err := b.pubsub.Subscribe(ctx, topicFor(sessionId))
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to session events: %w", err)
	}

	out := make(chan event.Event)
	go func() {
		defer close(out)
		for msg := range messages {
			ev, err := event.Decode(msg.Payload)
			msg.Ack()
			if err != nil {
				b.log.Warn("EventBus", "Dropping undecodable event", map[string]interface{}{
					"session_id": sessionId.String(),
					"error":      err.Error(),
				})
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *WatermillBus) Close() error {
	return b.pubsub.Close()
}

// PublishLogged publishes and downgrades failures to a warning. Event loss is
// acceptable; stalling the pipeline on a slow subscriber is not.
func PublishLogged(ctx context.Context, bus Bus, log logger.ILogger, module string, sessionId uuid.UUID, ev event.Event) {
	if err := bus.Publish(ctx, sessionId, ev); err != nil {
		log.Warn(module, "Failed to publish session event", map[string]interface{}{
			"session_id": sessionId.String(),
			"event_type": ev.EventType(),
			"error":      err.Error(),
		})
	}
}
