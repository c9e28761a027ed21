// Package pinecone provides a NamespaceStore backed by a Pinecone index.
//
// Each document is a Pinecone namespace. Chunk records carry their text in
// the "text" metadata field and are tagged kind=chunk. After all chunks are
// written, a marker vector with the fixed ID MarkerID (kind=marker) records
// the commit; NamespaceExists and Describe read only the marker, so a
// namespace whose upsert did not finish is reported as absent.
package pinecone

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/docchat/internal/adapters/driven/apierror"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/similarity"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.NamespaceStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultBatchSize = 100

	// MarkerID is the vector ID of the commit marker in every namespace.
	MarkerID = "__ingested__"

	apiVersion = "2024-07"

	metaKind        = "kind"
	metaText        = "text"
	metaRecords     = "records"
	metaDimensions  = "dimensions"
	metaFingerprint = "fingerprint"
	metaCompletedAt = "completed_at"

	kindChunk  = "chunk"
	kindMarker = "marker"
)

// Config holds configuration for the Pinecone store.
type Config struct {
	// Host is the index host, e.g. https://chat-ai-abc123.svc.us-east-1.pinecone.io (required).
	Host string

	// APIKey is the Pinecone API key (required).
	APIKey string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// BatchSize is the number of vectors per upsert request (default: 100).
	BatchSize int
}

// Store implements driven.NamespaceStore on the Pinecone data plane API.
type Store struct {
	api       *apierror.Client
	batchSize int

	// indexDims caches the index dimension after the first lookup.
	indexDims atomic.Int64
}

type vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type upsertRequest struct {
	Vectors   []vector `json:"vectors"`
	Namespace string   `json:"namespace"`
}

type queryRequest struct {
	Namespace       string         `json:"namespace"`
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	IncludeMetadata bool           `json:"includeMetadata"`
	Filter          map[string]any `json:"filter,omitempty"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

type fetchResponse struct {
	Vectors map[string]vector `json:"vectors"`
}

type statsResponse struct {
	Dimension int `json:"dimension"`
}

// NewStore creates a new Pinecone namespace store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: pinecone: index host is required", domain.ErrInvalidInput)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: pinecone: API key is required", domain.ErrInvalidInput)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	host := strings.TrimRight(cfg.Host, "/")
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}

	return &Store{
		api: &apierror.Client{
			Provider: "pinecone",
			BaseURL:  host,
			HTTP:     &http.Client{Timeout: cfg.Timeout},
			Header: http.Header{
				"Api-Key":                {cfg.APIKey},
				"X-Pinecone-Api-Version": {apiVersion},
			},
		},
		batchSize: cfg.BatchSize,
	}, nil
}

// NamespaceExists reports whether the namespace has a committed upsert.
func (s *Store) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	marker, err := s.fetchMarker(ctx, namespace)
	if err != nil {
		return false, err
	}
	return marker != nil, nil
}

// Upsert writes all records in batches, then the marker.
func (s *Store) Upsert(ctx context.Context, namespace string, records []domain.IndexRecord) error {
	if namespace == "" {
		return fmt.Errorf("%w: namespace is required", domain.ErrInvalidInput)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: no records to upsert", domain.ErrInvalidInput)
	}
	dims, err := similarity.Dimensions(records)
	if err != nil {
		return err
	}
	indexDims, err := s.indexDimensions(ctx)
	if err != nil {
		return err
	}
	if indexDims != 0 && indexDims != dims {
		return fmt.Errorf("%w: index has %d dimensions, records have %d",
			domain.ErrDimensionMismatch, indexDims, dims)
	}

	for start := 0; start < len(records); start += s.batchSize {
		end := min(start+s.batchSize, len(records))
		batch := make([]vector, 0, end-start)
		for _, r := range records[start:end] {
			batch = append(batch, toVector(r))
		}
		if err := s.post(ctx, "/vectors/upsert", upsertRequest{Vectors: batch, Namespace: namespace}, nil); err != nil {
			return err
		}
	}

	// Pinecone rejects all-zero dense vectors, so the marker points along
	// the first axis. It is excluded from queries by the kind filter.
	markerValues := make([]float32, dims)
	markerValues[0] = 1
	marker := vector{
		ID:     MarkerID,
		Values: markerValues,
		Metadata: map[string]any{
			metaKind:        kindMarker,
			metaRecords:     len(records),
			metaDimensions:  dims,
			metaFingerprint: domain.Fingerprint(records),
			metaCompletedAt: time.Now().UTC().Format(time.RFC3339Nano),
		},
	}
	return s.post(ctx, "/vectors/upsert", upsertRequest{Vectors: []vector{marker}, Namespace: namespace}, nil)
}

// Query returns the topK chunk records most similar to vector.
func (s *Store) Query(ctx context.Context, namespace string, vec []float32, topK int) ([]domain.RetrievalMatch, error) {
	marker, err := s.fetchMarker(ctx, namespace)
	if err != nil {
		return nil, err
	}
	if marker == nil || topK <= 0 {
		return []domain.RetrievalMatch{}, nil
	}
	if len(vec) != marker.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, namespace has %d",
			domain.ErrDimensionMismatch, len(vec), marker.Dimensions)
	}

	req := queryRequest{
		Namespace:       namespace,
		Vector:          vec,
		TopK:            topK,
		IncludeMetadata: true,
		Filter:          map[string]any{metaKind: map[string]any{"$eq": kindChunk}},
	}
	var resp queryResponse
	if err := s.post(ctx, "/query", req, &resp); err != nil {
		return nil, err
	}

	matches := make([]domain.RetrievalMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		text, _ := m.Metadata[metaText].(string)
		metadata := make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			if k != metaText && k != metaKind {
				metadata[k] = v
			}
		}
		matches = append(matches, domain.RetrievalMatch{
			ID:       m.ID,
			Text:     text,
			Score:    m.Score,
			Metadata: metadata,
		})
	}
	return matches, nil
}

// Describe returns the success marker of a namespace.
func (s *Store) Describe(ctx context.Context, namespace string) (*domain.NamespaceInfo, error) {
	marker, err := s.fetchMarker(ctx, namespace)
	if err != nil {
		return nil, err
	}
	if marker == nil {
		return nil, domain.ErrNotFound
	}
	return marker, nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

// fetchMarker returns the namespace marker, or nil when it is absent.
func (s *Store) fetchMarker(ctx context.Context, namespace string) (*domain.NamespaceInfo, error) {
	query := url.Values{}
	query.Set("ids", MarkerID)
	query.Set("namespace", namespace)

	var resp fetchResponse
	if err := s.do(ctx, http.MethodGet, "/vectors/fetch?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	v, ok := resp.Vectors[MarkerID]
	if !ok {
		return nil, nil
	}

	info := &domain.NamespaceInfo{
		Namespace:  namespace,
		Records:    intValue(v.Metadata[metaRecords]),
		Dimensions: intValue(v.Metadata[metaDimensions]),
	}
	if info.Dimensions == 0 {
		info.Dimensions = len(v.Values)
	}
	info.Fingerprint, _ = v.Metadata[metaFingerprint].(string)
	if ts, ok := v.Metadata[metaCompletedAt].(string); ok {
		info.CompletedAt, _ = time.Parse(time.RFC3339Nano, ts)
	}
	return info, nil
}

// indexDimensions returns the index dimension, cached after the first call.
func (s *Store) indexDimensions(ctx context.Context) (int, error) {
	if d := s.indexDims.Load(); d != 0 {
		return int(d), nil
	}
	var stats statsResponse
	if err := s.post(ctx, "/describe_index_stats", struct{}{}, &stats); err != nil {
		return 0, err
	}
	s.indexDims.Store(int64(stats.Dimension))
	return stats.Dimension, nil
}

func (s *Store) post(ctx context.Context, path string, in, out any) error {
	return s.do(ctx, http.MethodPost, path, in, out)
}

func (s *Store) do(ctx context.Context, method, path string, in, out any) error {
	return domain.WrapProviderError(domain.ErrVectorStore, s.api.Do(ctx, method, path, in, out))
}

func toVector(r domain.IndexRecord) vector {
	metadata := make(map[string]any, len(r.Metadata)+2)
	for k, v := range r.Metadata {
		metadata[k] = v
	}
	metadata[metaText] = r.Text
	metadata[metaKind] = kindChunk
	return vector{ID: r.ID, Values: r.Vector, Metadata: metadata}
}

// intValue reads a JSON number from decoded metadata.
func intValue(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
