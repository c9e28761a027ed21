// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// EmbeddingService generates vector embeddings from text.
//
// Every call states the role of its texts. Document-role and query-role
// vectors share one space but may be encoded differently by the provider,
// so chunk texts are always embedded with EmbeddingRoleDocument and search
// queries with EmbeddingRoleQuery.
//
// Implementations may include:
//   - Cohere (embed-v4.0 with search_document/search_query input types)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text with task prefixes)
type EmbeddingService interface {
	// EmbedBatch generates one embedding per text, in input order.
	// Failures are wrapped with domain.ErrEmbeddingProvider.
	EmbedBatch(ctx context.Context, texts []string, role domain.EmbeddingRole) ([][]float32, error)

	// EmbedQuery generates the query-role embedding of a single text.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size (e.g., 768, 1536).
	// Zero means the size is only known after the first call.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
