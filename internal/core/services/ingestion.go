package services

import (
	"context"
	"fmt"
	"maps"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// embedBatchSize caps the number of texts sent in one embedding request.
const embedBatchSize = 96

// IngestionService embeds a document into its namespace exactly once.
type IngestionService struct {
	docStore    driven.DocumentStore
	extraction  *ExtractionService
	embedder    driven.EmbeddingService
	store       driven.NamespaceStore
	embedPolicy callPolicy
	storePolicy callPolicy
	timeout     time.Duration

	// group serialises concurrent ingestion of the same document.
	group singleflight.Group
}

// NewIngestionService creates a new ingestion service.
// The embedder may be nil; ingestion then fails with domain.ErrEmbeddingUnavailable.
func NewIngestionService(
	docStore driven.DocumentStore,
	extraction *ExtractionService,
	embedder driven.EmbeddingService,
	store driven.NamespaceStore,
	settings domain.RAGSettings,
) *IngestionService {
	return &IngestionService{
		docStore:    docStore,
		extraction:  extraction,
		embedder:    embedder,
		store:       store,
		embedPolicy: callPolicy{retry: settings.Retry, timeout: settings.Timeouts.Embed},
		storePolicy: callPolicy{retry: settings.Retry, timeout: settings.Timeouts.Vector},
		timeout:     settings.Timeouts.Ingest,
	}
}

// EnsureIngested embeds and stores a document unless its namespace exists.
//
// Any failure before the upsert commits leaves the namespace absent, so the
// next call retries the whole ingestion from scratch.
//
// Concurrent callers share one run. The run is detached from every caller's
// cancellation and bounded by the ingest timeout instead; a caller whose
// context ends stops waiting without failing the others.
func (s *IngestionService) EnsureIngested(ctx context.Context, documentID string) (*domain.IngestResult, error) {
	logger.Section("Ensure Ingested")
	logger.Debug("Document: %s", documentID)

	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	exists, err := s.namespaceExists(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if exists {
		logger.Debug("Namespace exists, nothing to do")
		return &domain.IngestResult{DocumentID: documentID, AlreadyIngested: true}, nil
	}

	runCtx := context.WithoutCancel(ctx)
	done := s.group.DoChan(documentID, func() (any, error) {
		ingestCtx, cancel := s.withTimeout(runCtx)
		defer cancel()
		return s.ingest(ingestCtx, documentID)
	})

	select {
	case <-ctx.Done():
		logger.Debug("Stopped waiting for ingestion of %s: %v", documentID, ctx.Err())
		return nil, ctx.Err()
	case res := <-done:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logger.Debug("Joined concurrent ingestion of %s", documentID)
		}
		result := *res.Val.(*domain.IngestResult)
		return &result, nil
	}
}

func (s *IngestionService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// ingest runs extraction, embedding and upsert for one document.
func (s *IngestionService) ingest(ctx context.Context, documentID string) (*domain.IngestResult, error) {
	defer logger.Timed("ingest " + documentID)()

	// A concurrent caller may have committed between our check and the claim.
	exists, err := s.namespaceExists(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if exists {
		return &domain.IngestResult{DocumentID: documentID, AlreadyIngested: true}, nil
	}

	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	// 1. EXTRACT AND CHUNK
	chunks, err := s.extraction.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	// 2. EMBED (document role)
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	vectors, err := s.embedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}

	// 3. BUILD RECORDS
	records := buildRecords(chunks, vectors)

	// 4. UPSERT (commits the namespace marker)
	_, err = callWithRetry(ctx, s.storePolicy, "upsert", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.Upsert(ctx, documentID, records)
	})
	if err != nil {
		return nil, domain.WrapProviderError(domain.ErrVectorStore, err)
	}

	logger.Info("Ingested %s: %d records", documentID, len(records))
	return &domain.IngestResult{DocumentID: documentID, Records: len(records)}, nil
}

func (s *IngestionService) namespaceExists(ctx context.Context, documentID string) (bool, error) {
	exists, err := callWithRetry(ctx, s.storePolicy, "namespace check", func(ctx context.Context) (bool, error) {
		return s.store.NamespaceExists(ctx, documentID)
	})
	if err != nil {
		return false, domain.WrapProviderError(domain.ErrVectorStore, err)
	}
	return exists, nil
}

// embedDocuments embeds texts in batches, preserving order, and checks
// that every vector has the same dimension.
func (s *IngestionService) embedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		batch := texts[start:end]

		out, err := callWithRetry(ctx, s.embedPolicy, "embed batch", func(ctx context.Context) ([][]float32, error) {
			return s.embedder.EmbedBatch(ctx, batch, domain.EmbeddingRoleDocument)
		})
		if err != nil {
			return nil, domain.WrapProviderError(domain.ErrEmbeddingProvider, err)
		}
		if len(out) != len(batch) {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrEmbeddingProvider, len(out), len(batch))
		}
		vectors = append(vectors, out...)
	}

	dims := s.embedder.Dimensions()
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty vector at %d", domain.ErrEmbeddingProvider, i)
		}
		if dims == 0 {
			dims = len(v)
		}
		if len(v) != dims {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				domain.ErrDimensionMismatch, i, len(v), dims)
		}
	}
	return vectors, nil
}

// buildRecords pairs each chunk with its vector. The chunk text travels
// with the record because retrieval returns text alongside the score.
func buildRecords(chunks []domain.Chunk, vectors [][]float32) []domain.IndexRecord {
	records := make([]domain.IndexRecord, len(chunks))
	for i := range chunks {
		meta := make(map[string]any, len(chunks[i].Metadata)+4)
		maps.Copy(meta, chunks[i].Metadata)
		meta["document_id"] = chunks[i].DocumentID
		meta["position"] = chunks[i].Position
		meta["page"] = chunks[i].Page
		meta["offset"] = chunks[i].Offset

		records[i] = domain.IndexRecord{
			ID:       chunks[i].ID,
			Vector:   vectors[i],
			Text:     chunks[i].Content,
			Metadata: meta,
		}
	}
	return records
}
