package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ai-orchestrator-be/pkg/llm"
)

type OllamaProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

// Ensure OllamaProvider implements StreamAdapter
var _ llm.StreamAdapter = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string) *OllamaProvider {
	return &OllamaProvider{
		BaseURL:   baseURL,
		ModelName: modelName,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// --- Request/Response structs (Internal to this package) ---

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Stream sends a prompt to the Ollama streaming generate API and forwards
// each NDJSON fragment as a chunk. The channel is closed when the provider
// reports done or the body ends.
func (o *OllamaProvider) Stream(ctx context.Context, prompt string, options map[string]any) <-chan llm.Chunk {
	out := make(chan llm.Chunk)

	go func() {
		defer close(out)

		reqPayload := ollamaGenerateRequest{
			Model:   o.ModelName,
			Prompt:  prompt,
			Stream:  true,
			Options: &ollamaOptions{Temperature: 0.7},
		}
		if model, ok := options["model"].(string); ok && model != "" {
			reqPayload.Model = model
		}
		if temp, ok := options["temperature"].(float64); ok {
			reqPayload.Options.Temperature = temp
		}
		if maxTokens, ok := options["max_tokens"].(int); ok && maxTokens > 0 {
			reqPayload.Options.NumPredict = maxTokens
		}

		payloadBytes, err := json.Marshal(reqPayload)
		if err != nil {
			out <- llm.Chunk{Err: fmt.Errorf("marshal request: %w", err)}
			return
		}

		url := o.BaseURL + "/api/generate"
		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
		if err != nil {
			out <- llm.Chunk{Err: fmt.Errorf("create request: %w", err)}
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := o.Client.Do(req)
		if err != nil {
			out <- llm.Chunk{Err: fmt.Errorf("ollama request failed: %w", err)}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			out <- llm.Chunk{Err: fmt.Errorf("ollama returned status %d", resp.StatusCode)}
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			var fragment ollamaGenerateResponse
			if err := json.Unmarshal(scanner.Bytes(), &fragment); err != nil {
				out <- llm.Chunk{Err: fmt.Errorf("decode stream fragment: %w", err)}
				return
			}
			if fragment.Response != "" {
				select {
				case out <- llm.Chunk{Text: fragment.Response}:
				case <-ctx.Done():
					return
				}
			}
			if fragment.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			out <- llm.Chunk{Err: fmt.Errorf("read stream: %w", err)}
		}
	}()

	return out
}
