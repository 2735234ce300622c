package dto

import (
	"time"

	"github.com/google/uuid"
)

type PersonaPayload struct {
	Name  string `json:"name" validate:"required"`
	Style string `json:"style" validate:"required"`
}

type CapabilitiesPayload struct {
	Transcription bool `json:"transcription"`
	Generation    bool `json:"generation"`
	Synthesis     bool `json:"synthesis"`
}

type CreateSessionRequest struct {
	Persona      *PersonaPayload      `json:"persona,omitempty"`
	Capabilities *CapabilitiesPayload `json:"capabilities,omitempty"`
}

type UpdateSessionStateRequest struct {
	Persona      *PersonaPayload      `json:"persona,omitempty"`
	Capabilities *CapabilitiesPayload `json:"capabilities,omitempty"`
}

type CreateSessionResponse struct {
	SessionId       uuid.UUID `json:"session_id"`
	ConnectionToken string    `json:"connection_token"`
	ExpiresAt       time.Time `json:"expires_at"`
}

type SessionStateResponse struct {
	SessionId    uuid.UUID           `json:"session_id"`
	Status       string              `json:"status"`
	Persona      PersonaPayload      `json:"persona"`
	Capabilities CapabilitiesPayload `json:"capabilities"`
	MessageQueue []string            `json:"message_queue"`
}
