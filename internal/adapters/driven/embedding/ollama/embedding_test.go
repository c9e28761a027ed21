package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc := NewEmbeddingService(Config{})

	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, 768, svc.Dimensions())
}

func TestNewEmbeddingService_TaggedModel(t *testing.T) {
	svc := NewEmbeddingService(Config{Model: "mxbai-embed-large:335m"})

	assert.Equal(t, 1024, svc.Dimensions())
	assert.Equal(t, "mxbai-embed-large:335m", svc.ModelName())
}

func TestEmbedBatch_TaskPrefixes(t *testing.T) {
	tests := []struct {
		name  string
		model string
		role  domain.EmbeddingRole
		want  string
	}{
		{"nomic document", "nomic-embed-text", domain.EmbeddingRoleDocument, "search_document: text"},
		{"nomic query", "nomic-embed-text:latest", domain.EmbeddingRoleQuery, "search_query: text"},
		{"mxbai document", "mxbai-embed-large", domain.EmbeddingRoleDocument, "text"},
		{"mxbai query", "mxbai-embed-large", domain.EmbeddingRoleQuery,
			"Represent this sentence for searching relevant passages: text"},
		{"unprefixed model", "all-minilm", domain.EmbeddingRoleQuery, "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/embed", r.URL.Path)
				var req embedRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, tt.model, req.Model)
				assert.Equal(t, []string{tt.want}, req.Input)
				_, _ = w.Write([]byte(`{"embeddings":[[0.5,0.5]]}`))
			}))
			defer server.Close()

			svc := NewEmbeddingService(Config{BaseURL: server.URL, Model: tt.model})
			vectors, err := svc.EmbedBatch(context.Background(), []string{"text"}, tt.role)

			require.NoError(t, err)
			assert.Equal(t, [][]float32{{0.5, 0.5}}, vectors)
		})
	}
}

func TestEmbedQuery_LearnsDimensions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[1,0,0]]}`))
	}))
	defer server.Close()

	svc := NewEmbeddingService(Config{BaseURL: server.URL, Model: "custom-embedder"})
	assert.Zero(t, svc.Dimensions())

	vector, err := svc.EmbedQuery(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vector)
	assert.Equal(t, 3, svc.Dimensions())
}

func TestEmbedBatch_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
	}{
		{"model missing", http.StatusNotFound, `{"error":"model \"x\" not found"}`, false},
		{"server error", http.StatusInternalServerError, `{"error":"busy"}`, true},
		{"count mismatch", http.StatusOK, `{"embeddings":[]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			svc := NewEmbeddingService(Config{BaseURL: server.URL})
			_, err := svc.EmbedBatch(context.Background(), []string{"a"}, domain.EmbeddingRoleDocument)

			assert.ErrorIs(t, err, domain.ErrEmbeddingProvider)
			assert.Equal(t, tt.retryable, domain.IsRetryable(err))
		})
	}
}

func TestEmbedBatch_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	svc := NewEmbeddingService(Config{BaseURL: url})
	_, err := svc.EmbedBatch(context.Background(), []string{"a"}, domain.EmbeddingRoleDocument)

	assert.ErrorIs(t, err, domain.ErrEmbeddingProvider)
	assert.True(t, domain.IsRetryable(err))
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	svc := NewEmbeddingService(Config{BaseURL: server.URL})

	assert.NoError(t, svc.Ping(context.Background()))
}
