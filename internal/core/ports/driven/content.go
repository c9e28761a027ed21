package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// ContentSource fetches raw document bytes by reference.
type ContentSource interface {
	// Fetch returns the bytes behind ref.
	// Failures are wrapped with domain.ErrSourceUnavailable.
	Fetch(ctx context.Context, ref string) (*domain.RawContent, error)
}
