package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// NamespaceStore is a vector index partitioned into one namespace per document.
//
// Implementations must be safe for concurrent use. Upsert is atomic from the
// caller's point of view: records become queryable together with a terminal
// success marker, and NamespaceExists reports only that marker. A crash
// between the first record write and the marker leaves the namespace absent.
type NamespaceStore interface {
	// NamespaceExists reports whether the namespace has a committed upsert.
	NamespaceExists(ctx context.Context, namespace string) (bool, error)

	// Upsert stores all records in the namespace and writes the success marker.
	// Records must share one vector dimension.
	Upsert(ctx context.Context, namespace string, records []domain.IndexRecord) error

	// Query returns at most topK matches ordered by non-increasing score.
	// An absent or empty namespace yields an empty slice and no error.
	// A vector whose size differs from the stored records fails with
	// domain.ErrDimensionMismatch.
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.RetrievalMatch, error)

	// Describe returns the success marker of a namespace.
	// Returns domain.ErrNotFound if the namespace has not been committed.
	Describe(ctx context.Context, namespace string) (*domain.NamespaceInfo, error)

	// Close releases resources.
	Close() error
}
