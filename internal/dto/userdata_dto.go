package dto

import (
	"time"

	"github.com/google/uuid"
)

type ExportedMessage struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type ExportedMemory struct {
	Content   string    `json:"content"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

type ExportedSession struct {
	Id        uuid.UUID         `json:"id"`
	Status    string            `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	Messages  []ExportedMessage `json:"messages"`
	Memories  []ExportedMemory  `json:"memories"`
}

type ExportUserDataResponse struct {
	UserId     uuid.UUID         `json:"user_id"`
	ExportedAt time.Time         `json:"exported_at"`
	Sessions   []ExportedSession `json:"sessions"`
}
