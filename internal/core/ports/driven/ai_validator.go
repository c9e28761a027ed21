package driven

import "github.com/custodia-labs/docchat/internal/core/domain"

// AIConfigValidator checks provider settings before they are saved.
// Unconfigured settings are not an error; there is nothing to check yet.
type AIConfigValidator interface {
	// ValidateEmbedding reaches the embedding provider and embeds a probe
	// query. A vector whose size differs from the model's known dimension
	// is reported as domain.ErrDimensionMismatch, since namespaces built
	// with it could never be queried.
	ValidateEmbedding(config *domain.ProviderSettings) error

	// ValidateLLM reaches the generation provider.
	ValidateLLM(config *domain.ProviderSettings) error
}
