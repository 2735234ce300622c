package contract

import (
	"context"

	"ai-orchestrator-be/internal/entity"

	"github.com/google/uuid"
)

// ShortTermStore holds the per-session sliding window of recent conversation
// entries. Pushing beyond capacity evicts the oldest entry.
type ShortTermStore interface {
	Push(ctx context.Context, sessionId uuid.UUID, entry entity.ShortTermEntry) error
	// Window returns the retained entries ordered oldest first.
	Window(ctx context.Context, sessionId uuid.UUID) ([]entity.ShortTermEntry, error)
	Clear(ctx context.Context, sessionId uuid.UUID) error
}
