// Package ai builds the embedding and generation adapters selected in
// settings and wraps them with client-side rate limits.
package ai

import (
	"context"
	"fmt"
	"time"

	cohereembed "github.com/custodia-labs/docchat/internal/adapters/driven/embedding/cohere"
	ollamaembed "github.com/custodia-labs/docchat/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docchat/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/docchat/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/docchat/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/docchat/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docchat/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// pingTimeout bounds each connectivity check.
const pingTimeout = 5 * time.Second

const settingsHint = "Run 'docchat settings' to fix"

// service is what both adapter kinds share.
type service interface {
	Ping(ctx context.Context) error
	Close() error
}

var embeddingConstructors = map[domain.AIProvider]func(*domain.ProviderSettings) (driven.EmbeddingService, error){
	domain.AIProviderCohere: func(s *domain.ProviderSettings) (driven.EmbeddingService, error) {
		return upcast[driven.EmbeddingService](cohereembed.NewEmbeddingService(cohereembed.Config{
			APIKey:  s.APIKey,
			BaseURL: s.BaseURL,
			Model:   s.Model,
		}))
	},
	domain.AIProviderOllama: func(s *domain.ProviderSettings) (driven.EmbeddingService, error) {
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: s.BaseURL,
			Model:   s.Model,
		}), nil
	},
	domain.AIProviderOpenAI: func(s *domain.ProviderSettings) (driven.EmbeddingService, error) {
		return upcast[driven.EmbeddingService](openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     s.APIKey,
			BaseURL:    s.BaseURL,
			Model:      s.Model,
			Dimensions: domain.EmbeddingDimensions(s.Model),
		}))
	},
}

var llmConstructors = map[domain.AIProvider]func(*domain.ProviderSettings) (driven.LLMService, error){
	domain.AIProviderGemini: func(s *domain.ProviderSettings) (driven.LLMService, error) {
		return upcast[driven.LLMService](geminillm.NewLLMService(geminillm.Config{
			APIKey:  s.APIKey,
			BaseURL: s.BaseURL,
			Model:   s.Model,
		}))
	},
	domain.AIProviderOllama: func(s *domain.ProviderSettings) (driven.LLMService, error) {
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: s.BaseURL,
			Model:   s.Model,
		}), nil
	},
	domain.AIProviderOpenAI: func(s *domain.ProviderSettings) (driven.LLMService, error) {
		return upcast[driven.LLMService](openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  s.APIKey,
			BaseURL: s.BaseURL,
			Model:   s.Model,
		}))
	},
	domain.AIProviderAnthropic: func(s *domain.ProviderSettings) (driven.LLMService, error) {
		return upcast[driven.LLMService](anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  s.APIKey,
			BaseURL: s.BaseURL,
			Model:   s.Model,
		}))
	},
}

// InitResult holds whichever AI services could be started.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	Warnings         []string // Non-fatal issues, e.g. an unsupported provider.
}

func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Initialise creates both AI services from settings and applies the
// configured rate limits. A provider that is configured but fails to
// start is reported as a warning and left nil, so commands that do not
// need it keep working.
func Initialise(settings *domain.AppSettings) *InitResult {
	result := &InitResult{}
	if settings == nil {
		return result
	}

	warn := func(role string, err error) {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v. %s", role, err, settingsHint))
	}

	if emb, err := CreateEmbeddingService(&settings.Embedding); err != nil {
		warn("embedding", err)
	} else if emb != nil {
		result.EmbeddingService = WithEmbeddingRateLimit(emb, settings.RateLimit.EmbeddingRPS)
	}

	if llm, err := CreateLLMService(&settings.LLM); err != nil {
		warn("llm", err)
	} else if llm != nil {
		result.LLMService = WithLLMRateLimit(llm, settings.RateLimit.LLMRPS)
	}

	return result
}

// CreateEmbeddingService returns nil, nil when settings are not configured.
func CreateEmbeddingService(settings *domain.ProviderSettings) (driven.EmbeddingService, error) {
	return create(settings, embeddingConstructors, "embeddings, use cohere, ollama or openai")
}

// CreateLLMService returns nil, nil when settings are not configured.
func CreateLLMService(settings *domain.ProviderSettings) (driven.LLMService, error) {
	return create(settings, llmConstructors, "text generation")
}

func create[S service](
	settings *domain.ProviderSettings,
	constructors map[domain.AIProvider]func(*domain.ProviderSettings) (S, error),
	capability string,
) (S, error) {
	var zero S
	if settings == nil || !settings.IsConfigured() {
		return zero, nil
	}
	build, ok := constructors[settings.Provider]
	if !ok {
		return zero, fmt.Errorf("%w: %s does not support %s",
			domain.ErrUnsupportedType, settings.Provider, capability)
	}
	return build(settings)
}

// CreateAndValidateEmbeddingService also pings the provider. Failures
// carry domain.ErrEmbeddingUnavailable and a hint for the user.
func CreateAndValidateEmbeddingService(settings *domain.ProviderSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	return reachable(svc, err, domain.ErrEmbeddingUnavailable)
}

// CreateAndValidateLLMService is CreateAndValidateEmbeddingService for
// generation, failing with domain.ErrLLMUnavailable.
func CreateAndValidateLLMService(settings *domain.ProviderSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	return reachable(svc, err, domain.ErrLLMUnavailable)
}

func reachable[S service](svc S, err error, unavailable error) (S, error) {
	var zero S
	if err != nil {
		return zero, fmt.Errorf("%w: %w. %s", unavailable, err, settingsHint)
	}
	if any(svc) == nil {
		return zero, nil
	}
	if err := ping(svc); err != nil {
		svc.Close()
		return zero, fmt.Errorf("%w: service unreachable (%w). %s", unavailable, err, settingsHint)
	}
	return svc, nil
}

// ValidateEmbeddingConfig builds a throwaway service and pings it.
// Unconfigured settings are valid.
func ValidateEmbeddingConfig(settings *domain.ProviderSettings) error {
	svc, err := CreateEmbeddingService(settings)
	return pingOnce(svc, err)
}

// ValidateLLMConfig builds a throwaway service and pings it.
func ValidateLLMConfig(settings *domain.ProviderSettings) error {
	svc, err := CreateLLMService(settings)
	return pingOnce(svc, err)
}

func pingOnce[S service](svc S, err error) error {
	if err != nil || any(svc) == nil {
		return err
	}
	defer svc.Close()
	return ping(svc)
}

func ping(svc service) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// upcast converts a constructor result to a port type without producing
// a non-nil interface around a nil pointer.
func upcast[I any](svc I, err error) (I, error) {
	if err != nil {
		var zero I
		return zero, err
	}
	return svc, nil
}
