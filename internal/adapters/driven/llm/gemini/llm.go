// Package gemini generates text with the Google Gemini generateContent API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/docchat/internal/adapters/driven/apierror"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 120 * time.Second
)

// Config configures the adapter. APIKey is a Google AI Studio key.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService completes prompts through models/{model}:generateContent.
type LLMService struct {
	api   *apierror.Client
	model string
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// NewLLMService returns an adapter for cfg. A "models/" prefix on the
// model name is accepted and dropped.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
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

	return &LLMService{
		api: &apierror.Client{
			Provider: "gemini",
			BaseURL:  strings.TrimRight(cfg.BaseURL, "/"),
			HTTP:     &http.Client{Timeout: cfg.Timeout},
			Header:   http.Header{"X-Goog-Api-Key": {cfg.APIKey}},
		},
		model: strings.TrimPrefix(cfg.Model, "models/"),
	}, nil
}

// Generate sends prompt as one user turn. A blocked prompt is reported as
// invalid input since resending it will not help.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: toGenerationConfig(opts),
	}

	var resp generateResponse
	if err := s.api.Do(ctx, http.MethodPost, s.modelPath()+":generateContent", req, &resp); err != nil {
		return "", domain.WrapProviderError(domain.ErrGenerationProvider, err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: %w: gemini: prompt blocked: %s",
			domain.ErrGenerationProvider, domain.ErrInvalidInput, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: gemini: no candidates returned", domain.ErrGenerationProvider)
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return text.String(), nil
}

// toGenerationConfig returns nil when opts leaves everything at the model default.
func toGenerationConfig(opts driven.GenerateOptions) *generationConfig {
	if opts.MaxTokens == 0 && opts.Temperature == 0 && len(opts.StopWords) == 0 {
		return nil
	}
	cfg := &generationConfig{
		MaxOutputTokens: opts.MaxTokens,
		StopSequences:   opts.StopWords,
	}
	if opts.Temperature != 0 {
		t := opts.Temperature
		cfg.Temperature = &t
	}
	return cfg
}

func (s *LLMService) modelPath() string {
	return "/models/" + url.PathEscape(s.model)
}

func (s *LLMService) ModelName() string {
	return s.model
}

// Ping fetches the model's metadata, which checks both the key and the
// model name without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Do(ctx, http.MethodGet, s.modelPath(), nil, nil)
}

func (s *LLMService) Close() error {
	return nil
}
