package event

import (
	"encoding/json"
	"fmt"

	"ai-orchestrator-be/pkg/tts"
)

// Event is the contract for everything published on the session event bus.
// Events are transient; they exist only in transit and on the client wire.
type Event interface {
	EventType() string
}

const (
	TypeAuthSuccess       = "auth.success"
	TypeTranscriptPartial = "transcript.partial"
	TypeTranscriptFinal   = "transcript.final"
	TypeLLMPartial        = "llm.partial"
	TypeGesturePlan       = "gesture_plan"
	TypeEmotion           = "emotion"
	TypeSpeechChunk       = "speech.chunk"
)

type AuthSuccess struct{}

func (AuthSuccess) EventType() string { return TypeAuthSuccess }

type TranscriptPartial struct {
	Text string `json:"text"`
}

func (TranscriptPartial) EventType() string { return TypeTranscriptPartial }

type TranscriptFinal struct {
	Text string `json:"text"`
}

func (TranscriptFinal) EventType() string { return TypeTranscriptFinal }

type LLMPartial struct {
	Text string `json:"text"`
}

func (LLMPartial) EventType() string { return TypeLLMPartial }

type GesturePlan struct {
	Plan json.RawMessage `json:"plan"`
}

func (GesturePlan) EventType() string { return TypeGesturePlan }

type Emotion struct {
	Emotion string `json:"emotion"`
}

func (Emotion) EventType() string { return TypeEmotion }

type SpeechChunk struct {
	AudioBase64 string        `json:"audio_base64"`
	Visemes     []tts.Viseme  `json:"visemes"`
	Phonemes    []tts.Phoneme `json:"phonemes,omitempty"`
}

func (SpeechChunk) EventType() string { return TypeSpeechChunk }

// Encode serializes an event to its wire form: the payload fields plus a
// "type" discriminator.
func Encode(ev Event) ([]byte, error) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["type"] = ev.EventType()
	return json.Marshal(fields)
}

// Decode reverses Encode using the "type" discriminator.
func Decode(data []byte) (Event, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	switch head.Type {
	case TypeAuthSuccess:
		return AuthSuccess{}, nil
	case TypeTranscriptPartial:
		var ev TranscriptPartial
		return ev, json.Unmarshal(data, &ev)
	case TypeTranscriptFinal:
		var ev TranscriptFinal
		return ev, json.Unmarshal(data, &ev)
	case TypeLLMPartial:
		var ev LLMPartial
		return ev, json.Unmarshal(data, &ev)
	case TypeGesturePlan:
		var ev GesturePlan
		return ev, json.Unmarshal(data, &ev)
	case TypeEmotion:
		var ev Emotion
		return ev, json.Unmarshal(data, &ev)
	case TypeSpeechChunk:
		var ev SpeechChunk
		return ev, json.Unmarshal(data, &ev)
	default:
		return nil, fmt.Errorf("unknown event type %q", head.Type)
	}
}
