package llm

import (
	"context"
	"encoding/json"
)

// Chunk is one item of a generation stream. Any combination of fields may be
// set; a non-nil Err terminates the stream. The channel is closed at
// provider-signaled end-of-stream.
type Chunk struct {
	Text        string
	GesturePlan json.RawMessage
	Emotion     string
	Err         error
}

// StreamAdapter is the contract for streaming language-model providers.
// Options are provider-specific overrides (temperature, model, ...).
type StreamAdapter interface {
	Stream(ctx context.Context, prompt string, options map[string]any) <-chan Chunk
}
