// Package cohere provides an embedding service adapter using the Cohere v2 API.
package cohere

import (
	"context"
	"encoding/json"
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

// Default configuration values.
const (
	DefaultBaseURL = "https://api.cohere.com"
	DefaultModel   = "embed-v4.0"
	DefaultTimeout = 60 * time.Second

	// MaxBatchSize is the most texts Cohere accepts per request.
	MaxBatchSize = 96
)

// Cohere input types for each embedding role.
const (
	inputTypeDocument = "search_document"
	inputTypeQuery    = "search_query"
)

// Model dimensions for Cohere embedding models.
var modelDimensions = map[string]int{
	"embed-v4.0":               1536,
	"embed-english-v3.0":       1024,
	"embed-multilingual-v3.0":  1024,
	"embed-english-light-v3.0": 384,
}

// Config holds configuration for the Cohere embedding service.
type Config struct {
	// APIKey is the Cohere API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.cohere.com).
	BaseURL string

	// Model is the embedding model to use (default: embed-v4.0).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions overrides the known dimension for the model.
	// Zero for an unknown model means it is learned from the first response.
	Dimensions int
}

// EmbeddingService generates embeddings using Cohere.
type EmbeddingService struct {
	api        *apierror.Client
	model      string
	dimensions atomic.Int64
}

// embedRequest is the Cohere v2 embed request format.
type embedRequest struct {
	Model          string   `json:"model"`
	Texts          []string `json:"texts"`
	InputType      string   `json:"input_type"`
	EmbeddingTypes []string `json:"embedding_types"`
}

// embedResponse is the Cohere embed response format. Embeddings is either
// an object keyed by type (v2) or a bare array of vectors (v1).
type embedResponse struct {
	ID         string          `json:"id"`
	Embeddings json.RawMessage `json:"embeddings"`
}

// NewEmbeddingService creates a new Cohere embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("cohere: API key is required")
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
			Provider: "cohere",
			BaseURL:  strings.TrimRight(cfg.BaseURL, "/"),
			HTTP:     &http.Client{Timeout: cfg.Timeout},
			Header: http.Header{
				"Authorization": {"Bearer " + cfg.APIKey},
				"Accept":        {"application/json"},
			},
		},
		model: cfg.Model,
	}
	s.dimensions.Store(int64(cfg.Dimensions))
	return s, nil
}

// EmbedBatch generates embeddings for texts, splitting into requests of at
// most MaxBatchSize texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string, role domain.EmbeddingRole) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	inputType, err := inputTypeFor(role)
	if err != nil {
		return nil, err
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(texts))
		batch, err := s.embed(ctx, texts[start:end], inputType)
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
	}
	return embeddings, nil
}

// EmbedQuery generates the search_query embedding of text.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.embed(ctx, []string{text}, inputTypeQuery)
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	req := embedRequest{
		Model:          s.model,
		Texts:          texts,
		InputType:      inputType,
		EmbeddingTypes: []string{"float"},
	}

	var embedResp embedResponse
	if err := s.api.Do(ctx, http.MethodPost, "/v2/embed", req, &embedResp); err != nil {
		return nil, domain.WrapProviderError(domain.ErrEmbeddingProvider, err)
	}

	embeddings, err := normaliseEmbeddings(embedResp.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("%w: cohere: %w", domain.ErrEmbeddingProvider, err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: cohere: got %d embeddings for %d texts",
			domain.ErrEmbeddingProvider, len(embeddings), len(texts))
	}

	s.learnDimensions(embeddings)
	return embeddings, nil
}

// normaliseEmbeddings accepts {"float":[[...]]} or [[...]].
func normaliseEmbeddings(raw json.RawMessage) ([][]float32, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.New("response has no embeddings")
	}

	var typed struct {
		Float [][]float32 `json:"float"`
	}
	if err := json.Unmarshal(raw, &typed); err == nil && typed.Float != nil {
		return typed.Float, nil
	}

	var bare [][]float32
	if err := json.Unmarshal(raw, &bare); err != nil {
		return nil, fmt.Errorf("unrecognised embeddings shape: %w", err)
	}
	return bare, nil
}

func (s *EmbeddingService) learnDimensions(embeddings [][]float32) {
	if len(embeddings) > 0 && len(embeddings[0]) > 0 {
		s.dimensions.CompareAndSwap(0, int64(len(embeddings[0])))
	}
}

func inputTypeFor(role domain.EmbeddingRole) (string, error) {
	switch role {
	case domain.EmbeddingRoleDocument:
		return inputTypeDocument, nil
	case domain.EmbeddingRoleQuery:
		return inputTypeQuery, nil
	default:
		return "", fmt.Errorf("%w: embedding role %q", domain.ErrInvalidInput, role)
	}
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return int(s.dimensions.Load())
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the API key by listing models.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.api.Do(ctx, http.MethodGet, "/v1/models?page_size=1", nil, nil)
}

func (s *EmbeddingService) Close() error {
	return nil
}
