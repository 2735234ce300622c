package stt

import "context"

// Result is one item of a transcription stream. A non-nil Err terminates the
// stream; the channel is closed after the last item.
type Result struct {
	Transcript string
	IsFinal    bool
	Err        error
}

// Adapter is the contract for streaming speech-to-text providers.
//
// The returned channel yields interim and final results while the audio
// channel is open; closing the audio channel signals end-of-input and makes
// the provider flush a final result before closing the result channel.
// Cancelling ctx aborts the stream.
type Adapter interface {
	Stream(ctx context.Context, audio <-chan []byte) <-chan Result
}
