package tts

import "context"

type Phoneme struct {
	Tag      string  `json:"tag"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
}

// Viseme is a visual mouth-shape unit aligned to synthesized audio.
type Viseme struct {
	Tag      string  `json:"tag"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
}

// Chunk is one item of a synthesis stream. Viseme timing data rides on the
// first audio chunk only; later chunks carry an empty viseme list. A non-nil
// Err terminates the stream.
type Chunk struct {
	AudioBase64 string
	Visemes     []Viseme
	Phonemes    []Phoneme
	Err         error
}

// Adapter is the contract for streaming text-to-speech providers.
type Adapter interface {
	Stream(ctx context.Context, text string) <-chan Chunk
}
