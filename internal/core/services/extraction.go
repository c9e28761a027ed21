package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// ExtractionService turns a document reference into ordered text chunks.
type ExtractionService struct {
	source     driven.ContentSource
	extractors driven.ExtractorRegistry
	chunker    driven.Chunker
	policy     callPolicy
}

// NewExtractionService creates a new extraction service.
func NewExtractionService(
	source driven.ContentSource,
	extractors driven.ExtractorRegistry,
	chunker driven.Chunker,
	settings domain.RAGSettings,
) *ExtractionService {
	return &ExtractionService{
		source:     source,
		extractors: extractors,
		chunker:    chunker,
		policy:     callPolicy{retry: settings.Retry, timeout: settings.Timeouts.Fetch},
	}
}

// Extract fetches, parses and splits a document.
// Fails with domain.ErrSourceUnavailable when the content cannot be fetched
// and with domain.ErrUnsupportedFormat when it cannot be parsed. A parse
// cut short by cancellation or a deadline is not a format failure.
func (s *ExtractionService) Extract(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil || doc.ContentRef == "" {
		return nil, fmt.Errorf("%w: document has no content reference", domain.ErrSourceUnavailable)
	}

	// 1. FETCH
	raw, err := callWithRetry(ctx, s.policy, "fetch", func(ctx context.Context) (*domain.RawContent, error) {
		return s.source.Fetch(ctx, doc.ContentRef)
	})
	if err != nil {
		return nil, domain.WrapProviderError(domain.ErrSourceUnavailable, err)
	}
	if doc.MIMEType != "" {
		raw.MIMEType = doc.MIMEType
	}
	logger.Debug("Fetched %d bytes (%s) from %s", len(raw.Data), raw.MIMEType, doc.ContentRef)

	// 2. PARSE INTO PAGES
	pages, err := s.extractors.Extract(ctx, raw)
	if err != nil {
		if cause := interruption(ctx, err); cause != nil {
			return nil, fmt.Errorf("%w: parse interrupted: %w", cause, err)
		}
		return nil, domain.WrapProviderError(domain.ErrUnsupportedFormat, err)
	}
	logger.Debug("Extracted %d pages", len(pages))

	// 3. SPLIT INTO CHUNKS
	chunks, err := s.chunker.Chunk(ctx, doc.ID, pages)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no extractable text", domain.ErrUnsupportedFormat)
	}
	logger.Debug("Split into %d chunks with %s", len(chunks), s.chunker.Name())

	return chunks, nil
}

// interruption reports why a failed call was cut short, or nil when it
// failed on its own. Killed subprocesses rarely wrap the context error, so
// the context itself is checked too.
func interruption(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		return context.Canceled
	case ctx.Err() != nil, domain.IsTimeout(err):
		return domain.ErrTimeout
	}
	return nil
}
