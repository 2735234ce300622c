package embedding

import "fmt"

type EmbeddingRequestContentPart struct {
	Text string `json:"text"`
}

type EmbeddingRequestContent struct {
	Parts []EmbeddingRequestContentPart `json:"parts"`
}

type EmbeddingRequest struct {
	Model    string                  `json:"model"`
	Content  EmbeddingRequestContent `json:"content"`
	TaskType string                  `json:"taskType,omitempty"`
}

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}

// EmbeddingProvider defines the interface for generating text embeddings.
// The task type is a provider hint ("RETRIEVAL_DOCUMENT", "RETRIEVAL_QUERY").
type EmbeddingProvider interface {
	Generate(text string, taskType string) (*EmbeddingResponse, error)
}

// checkDimension guards the vector column width. A provider returning the
// wrong size would silently corrupt similarity search, so it fails loudly.
func checkDimension(values []float32, want int) error {
	if want > 0 && len(values) != want {
		return fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(values), want)
	}
	return nil
}
