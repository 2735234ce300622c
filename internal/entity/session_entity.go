package entity

import (
	"time"

	"github.com/google/uuid"
)

type Session struct {
	Id           uuid.UUID
	UserId       uuid.UUID
	Status       string
	Persona      Persona
	Capabilities Capabilities
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	DeletedAt    *time.Time
	IsDeleted    bool
}

// Persona describes how the assistant presents itself for a session.
type Persona struct {
	Name  string `json:"name"`
	Style string `json:"style"`
}

// Capabilities flags which pipeline stages are enabled for a session.
type Capabilities struct {
	Transcription bool `json:"transcription"`
	Generation    bool `json:"generation"`
	Synthesis     bool `json:"synthesis"`
}

// SessionState is the cached runtime projection of a session. It is owned by
// the registry; read-modify-write cycles on it are serialized per session.
type SessionState struct {
	Persona      Persona      `json:"persona"`
	Capabilities Capabilities `json:"capabilities"`
	MessageQueue []string     `json:"message_queue"` // last N raw outbound messages
	Status       string       `json:"status"`
}

func DefaultSessionState() *SessionState {
	return &SessionState{
		Persona: Persona{
			Name:  "Assistant",
			Style: "friendly",
		},
		Capabilities: Capabilities{
			Transcription: true,
			Generation:    true,
			Synthesis:     true,
		},
		MessageQueue: []string{},
		Status:       "active",
	}
}
