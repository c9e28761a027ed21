package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// probeQuery is embedded to learn the size of the model's query vectors.
const probeQuery = "docchat configuration check"

// ConfigValidator validates provider settings against the live services.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator creates a validator that gives each provider pingTimeout.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: pingTimeout}
}

// ValidateEmbedding pings the provider, then checks the probe vector size.
func (v *ConfigValidator) ValidateEmbedding(config *domain.ProviderSettings) error {
	if config == nil || !config.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(config)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	return checkEmbedding(ctx, svc)
}

// ValidateLLM pings the generation provider.
func (v *ConfigValidator) ValidateLLM(config *domain.ProviderSettings) error {
	return ValidateLLMConfig(config)
}

// checkEmbedding verifies that svc is reachable and that its query vectors
// match the dimension it declares. A declared size of zero accepts any
// non-empty vector.
func checkEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if err := svc.Ping(ctx); err != nil {
		return err
	}

	vec, err := svc.EmbedQuery(ctx, probeQuery)
	if err != nil {
		return fmt.Errorf("embedding probe: %w", err)
	}
	if len(vec) == 0 {
		return errors.Join(domain.ErrEmbeddingProvider,
			fmt.Errorf("model %s returned an empty vector", svc.ModelName()))
	}

	if want := svc.Dimensions(); want > 0 && len(vec) != want {
		return fmt.Errorf("%w: model %s returned %d dimensions, expected %d",
			domain.ErrDimensionMismatch, svc.ModelName(), len(vec), want)
	}
	return nil
}
