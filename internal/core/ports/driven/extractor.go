package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// Extractor parses raw document bytes into page text.
// Each extractor handles specific MIME types (e.g., PDF, Markdown).
type Extractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific extractors should return 50-89.
	// Fallback extractors should return 1-9.
	Priority() int

	// Extract returns the text of each page in order.
	// Parse failures are wrapped with domain.ErrUnsupportedFormat.
	Extract(ctx context.Context, raw *domain.RawContent) ([]domain.Page, error)
}

// ExtractorRegistry selects the appropriate extractor for raw content.
type ExtractorRegistry interface {
	// Extract parses raw content using the best matching extractor.
	// Returns domain.ErrUnsupportedFormat if no extractor matches.
	Extract(ctx context.Context, raw *domain.RawContent) ([]domain.Page, error)

	// Register adds an extractor to the registry.
	Register(extractor Extractor)

	// SupportedMIMETypes returns all MIME types that can be extracted.
	SupportedMIMETypes() []string
}

// Chunker splits page text into bounded-size overlapping chunks.
// Splitting is a pure function of the pages and the chunker configuration.
type Chunker interface {
	// Name returns the chunker name for logging and configuration.
	Name() string

	// Chunk splits the pages of a document into ordered chunks.
	Chunk(ctx context.Context, documentID string, pages []domain.Page) ([]domain.Chunk, error)
}
