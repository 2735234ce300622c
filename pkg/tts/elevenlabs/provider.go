package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode"

	"ai-orchestrator-be/pkg/tts"
)

const (
	baseURL = "https://api.elevenlabs.io/v1"
	modelID = "eleven_multilingual_v2"

	// Rough per-phoneme duration used for timing estimates until a forced
	// aligner is wired in.
	phonemeDurationSec = 0.08

	audioChunkSize = 4096
)

type ElevenLabsProvider struct {
	APIKey  string
	VoiceID string
	Client  *http.Client
}

var _ tts.Adapter = &ElevenLabsProvider{}

func NewElevenLabsProvider(apiKey, voiceID string) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		APIKey:  apiKey,
		VoiceID: voiceID,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type synthesizeRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Stream synthesizes text and yields base64 audio chunks. Viseme timing is
// attached to the first chunk only; subsequent chunks carry an empty list.
func (p *ElevenLabsProvider) Stream(ctx context.Context, text string) <-chan tts.Chunk {
	out := make(chan tts.Chunk)

	go func() {
		defer close(out)

		phonemes := estimatePhonemes(text)
		visemes := tts.NormalizePhonemes(phonemes)

		payload, err := json.Marshal(synthesizeRequest{Text: text, ModelID: modelID})
		if err != nil {
			out <- tts.Chunk{Err: fmt.Errorf("marshal request: %w", err)}
			return
		}

		url := fmt.Sprintf("%s/text-to-speech/%s/stream", baseURL, p.VoiceID)
		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payload))
		if err != nil {
			out <- tts.Chunk{Err: fmt.Errorf("create request: %w", err)}
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("xi-api-key", p.APIKey)

		resp, err := p.Client.Do(req)
		if err != nil {
			out <- tts.Chunk{Err: fmt.Errorf("elevenlabs request failed: %w", err)}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			out <- tts.Chunk{Err: fmt.Errorf("elevenlabs returned status %d", resp.StatusCode)}
			return
		}

		visemesSent := false
		buf := make([]byte, audioChunkSize)
		for {
			n, readErr := resp.Body.Read(buf)
			if n > 0 {
				chunk := tts.Chunk{
					AudioBase64: base64.StdEncoding.EncodeToString(buf[:n]),
					Visemes:     []tts.Viseme{},
				}
				if !visemesSent {
					chunk.Visemes = visemes
					chunk.Phonemes = phonemes
					visemesSent = true
				}
				select {
				case out <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if readErr == io.EOF {
				return
			}
			if readErr != nil {
				if ctx.Err() == nil {
					out <- tts.Chunk{Err: fmt.Errorf("read audio stream: %w", readErr)}
				}
				return
			}
		}
	}()

	return out
}

// estimatePhonemes derives a grapheme-level phoneme sequence with uniform
// timing. Good enough to drive mouth shapes; replaced per chunk once the
// provider exposes character timestamps.
func estimatePhonemes(text string) []tts.Phoneme {
	var phonemes []tts.Phoneme
	offset := 0.0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		phonemes = append(phonemes, tts.Phoneme{
			Tag:      string(unicode.ToLower(r)),
			StartSec: offset,
			EndSec:   offset + phonemeDurationSec,
		})
		offset += phonemeDurationSec
	}
	return phonemes
}
