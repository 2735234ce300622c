package entity

import (
	"time"

	"github.com/google/uuid"
)

// MemoryRecord is an embedding-indexed long-term memory. Immutable after
// creation; removed only by user-data erasure.
type MemoryRecord struct {
	Id        uuid.UUID
	SessionId uuid.UUID
	Content   string
	Embedding []float32
	Source    string
	CreatedAt time.Time
}
