// Package openai embeds text with the OpenAI embeddings API or any
// server that speaks the same protocol.
package openai

import (
	"context"
	"errors"
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
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second
)

var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config configures the adapter. Dimensions overrides the model's native
// size and is only sent for text-embedding-3-* models; left at zero for
// an unknown model, the size is learned from the first response.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Dimensions int
}

// EmbeddingService embeds documents and queries identically; OpenAI has no
// notion of an input role.
type EmbeddingService struct {
	api        *apierror.Client
	model      string
	dimensions atomic.Int64
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// NewEmbeddingService returns an adapter for cfg. The API key is required.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = modelDimensions[cfg.Model]
	}

	s := &EmbeddingService{
		api: &apierror.Client{
			Provider: "openai",
			BaseURL:  strings.TrimRight(cfg.BaseURL, "/"),
			HTTP:     &http.Client{Timeout: cfg.Timeout},
			Header:   http.Header{"Authorization": {"Bearer " + cfg.APIKey}},
		},
		model: cfg.Model,
	}
	s.dimensions.Store(int64(cfg.Dimensions))
	return s, nil
}

func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text}, domain.EmbeddingRoleQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one request and returns the vectors in input
// order. Every index in the response must appear exactly once.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string, role domain.EmbeddingRole) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: embedding role %q", domain.ErrInvalidInput, role)
	}

	req := embeddingRequest{Model: s.model, Input: texts}
	if strings.HasPrefix(s.model, "text-embedding-3-") {
		req.Dimensions = s.Dimensions()
	}

	var resp embeddingResponse
	if err := s.api.Do(ctx, http.MethodPost, "/embeddings", req, &resp); err != nil {
		return nil, domain.WrapProviderError(domain.ErrEmbeddingProvider, err)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) || vectors[d.Index] != nil {
			return nil, fmt.Errorf("%w: openai: unexpected embedding index %d", domain.ErrEmbeddingProvider, d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: openai: missing embedding %d", domain.ErrEmbeddingProvider, i)
		}
	}

	s.dimensions.CompareAndSwap(0, int64(len(vectors[0])))
	return vectors, nil
}

// Dimensions is zero until known.
func (s *EmbeddingService) Dimensions() int {
	return int(s.dimensions.Load())
}

func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without embedding anything.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.api.Do(ctx, http.MethodGet, "/models", nil, nil)
}

func (s *EmbeddingService) Close() error {
	return nil
}
