package contract

import (
	"context"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/repository/specification"

	"github.com/google/uuid"
)

type MemoryRepository interface {
	Create(ctx context.Context, record *entity.MemoryRecord) error
	DeleteAllBySessionIdUnscoped(ctx context.Context, sessionId uuid.UUID) error
	DeleteAllByUserIdUnscoped(ctx context.Context, userId uuid.UUID) error // Hard delete via session join
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MemoryRecord, error)
	// SearchSimilar returns up to limit records for the session ordered by
	// ascending cosine distance to the query embedding.
	SearchSimilar(ctx context.Context, sessionId uuid.UUID, embedding []float32, limit int) ([]*entity.MemoryRecord, error)
}
