package entity

import (
	"time"

	"github.com/google/uuid"
)

// Message is one durably persisted conversation message.
type Message struct {
	Id        uuid.UUID
	SessionId uuid.UUID
	Role      string
	Text      string
	CreatedAt time.Time
}

// ShortTermEntry is one element of the per-session sliding recency window.
type ShortTermEntry struct {
	Role string `json:"role"`
	Text string `json:"text"`
}
