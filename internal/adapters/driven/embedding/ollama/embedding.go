// Package ollama provides an embedding service adapter using Ollama.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/docchat/internal/adapters/driven/apierror"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "nomic-embed-text"
	DefaultTimeout = 30 * time.Second
)

// Known model dimensions. Other models learn theirs from the first response.
var modelDimensions = map[string]int{
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"all-minilm":        384,
}

// taskPrefix holds the text prefixes a model family was trained with.
type taskPrefix struct {
	document string
	query    string
}

// Models that encode documents and queries asymmetrically through
// plain-text prefixes, keyed by model name without tag.
var taskPrefixes = map[string]taskPrefix{
	"nomic-embed-text": {
		document: "search_document: ",
		query:    "search_query: ",
	},
	"mxbai-embed-large": {
		query: "Represent this sentence for searching relevant passages: ",
	},
}

// Config configures the adapter. Model may carry a tag ("nomic-embed-text:v1.5");
// the family before the colon selects dimensions and task prefixes.
type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Dimensions int
}

// EmbeddingService embeds through /api/embed, prefixing each input with
// the task instruction its model family expects for the role.
type EmbeddingService struct {
	api        *apierror.Client
	model      string
	prefix     taskPrefix
	dimensions atomic.Int64
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewEmbeddingService fills unset fields with defaults.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	family, _, _ := strings.Cut(cfg.Model, ":")
	if cfg.Dimensions == 0 {
		cfg.Dimensions = modelDimensions[family]
	}

	s := &EmbeddingService{
		api: &apierror.Client{
			Provider: "ollama",
			BaseURL:  strings.TrimRight(cfg.BaseURL, "/"),
			HTTP:     &http.Client{Timeout: cfg.Timeout},
		},
		model:  cfg.Model,
		prefix: taskPrefixes[family],
	}
	s.dimensions.Store(int64(cfg.Dimensions))
	return s
}

func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text}, domain.EmbeddingRoleQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one request. The server must return exactly
// one vector per input.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string, role domain.EmbeddingRole) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var prefix string
	switch role {
	case domain.EmbeddingRoleDocument:
		prefix = s.prefix.document
	case domain.EmbeddingRoleQuery:
		prefix = s.prefix.query
	default:
		return nil, fmt.Errorf("%w: embedding role %q", domain.ErrInvalidInput, role)
	}

	input := make([]string, len(texts))
	for i, text := range texts {
		input[i] = prefix + text
	}

	var embedResp embedResponse
	if err := s.api.Do(ctx, http.MethodPost, "/api/embed", embedRequest{Model: s.model, Input: input}, &embedResp); err != nil {
		return nil, domain.WrapProviderError(domain.ErrEmbeddingProvider, err)
	}
	if len(embedResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: ollama: got %d embeddings for %d texts",
			domain.ErrEmbeddingProvider, len(embedResp.Embeddings), len(texts))
	}

	s.dimensions.CompareAndSwap(0, int64(len(embedResp.Embeddings[0])))
	return embedResp.Embeddings, nil
}

// Dimensions is zero until known.
func (s *EmbeddingService) Dimensions() int {
	return int(s.dimensions.Load())
}

func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping lists local models; it only proves the server is up.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.api.Do(ctx, http.MethodGet, "/api/tags", nil, nil)
}

func (s *EmbeddingService) Close() error {
	return nil
}
