package ai

import (
	"context"
	"math"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// newLimiter builds a token bucket whose burst covers one second of traffic.
func newLimiter(rps float64) *rate.Limiter {
	burst := int(math.Ceil(rps))
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// rateLimitedEmbedding throttles calls to an embedding provider.
type rateLimitedEmbedding struct {
	driven.EmbeddingService
	limiter *rate.Limiter
}

// WithEmbeddingRateLimit wraps svc so that at most rps requests per second
// reach the provider. Zero or negative rps returns svc unchanged.
func WithEmbeddingRateLimit(svc driven.EmbeddingService, rps float64) driven.EmbeddingService {
	if svc == nil || rps <= 0 {
		return svc
	}
	return &rateLimitedEmbedding{EmbeddingService: svc, limiter: newLimiter(rps)}
}

func (r *rateLimitedEmbedding) EmbedBatch(ctx context.Context, texts []string, role domain.EmbeddingRole) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, domain.WrapProviderError(domain.ErrEmbeddingProvider, err)
	}
	return r.EmbeddingService.EmbedBatch(ctx, texts, role)
}

func (r *rateLimitedEmbedding) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, domain.WrapProviderError(domain.ErrEmbeddingProvider, err)
	}
	return r.EmbeddingService.EmbedQuery(ctx, text)
}

// rateLimitedLLM throttles calls to a text-generation provider.
type rateLimitedLLM struct {
	driven.LLMService
	limiter *rate.Limiter
}

// WithLLMRateLimit wraps svc so that at most rps requests per second
// reach the provider. Zero or negative rps returns svc unchanged.
func WithLLMRateLimit(svc driven.LLMService, rps float64) driven.LLMService {
	if svc == nil || rps <= 0 {
		return svc
	}
	return &rateLimitedLLM{LLMService: svc, limiter: newLimiter(rps)}
}

func (r *rateLimitedLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", domain.WrapProviderError(domain.ErrGenerationProvider, err)
	}
	return r.LLMService.Generate(ctx, prompt, opts)
}
