package embedding

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaProviderNormalizesVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{3, 4}})
	}))
	defer srv.Close()

	provider := NewOllamaProvider(srv.URL, "", 2)
	resp, err := provider.Generate("hello", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)

	values := resp.Embedding.Values
	require.Len(t, values, 2)
	assert.InDelta(t, 0.6, values[0], 1e-6)
	assert.InDelta(t, 0.8, values[1], 1e-6)
}

func TestOllamaProviderDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{1, 2, 3}})
	}))
	defer srv.Close()

	provider := NewOllamaProvider(srv.URL, "", 4)
	_, err := provider.Generate("hello", "RETRIEVAL_DOCUMENT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestGeminiProviderPassesTaskType(t *testing.T) {
	var gotTask string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req EmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotTask = req.TaskType
		json.NewEncoder(w).Encode(EmbeddingResponse{
			Embedding: EmbeddingResponseEmbedding{Values: []float32{0.1, 0.2}},
		})
	}))
	defer srv.Close()

	provider := NewGeminiProvider("key", "", 2).(*GeminiProvider)
	provider.baseURL = srv.URL

	resp, err := provider.Generate("hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	assert.Equal(t, "RETRIEVAL_QUERY", gotTask)
	assert.Len(t, resp.Embedding.Values, 2)
}

func TestGeminiProviderDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(EmbeddingResponse{
			Embedding: EmbeddingResponseEmbedding{Values: []float32{0.1, 0.2}},
		})
	}))
	defer srv.Close()

	provider := NewGeminiProvider("key", "", 3).(*GeminiProvider)
	provider.baseURL = srv.URL

	_, err := provider.Generate("hello", "RETRIEVAL_QUERY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestCheckDimensionUnsetIsPermissive(t *testing.T) {
	assert.NoError(t, checkDimension([]float32{1, 2, 3}, 0))
}

func TestNormalizeZeroVector(t *testing.T) {
	vec := []float32{0, 0}
	assert.Equal(t, vec, normalizeVector(vec))
}
