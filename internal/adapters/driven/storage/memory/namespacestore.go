package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/similarity"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure NamespaceStore implements the interface.
var _ driven.NamespaceStore = (*NamespaceStore)(nil)

// NamespaceStore is an in-memory implementation of driven.NamespaceStore.
// A namespace is published in a single map write under the lock, so readers
// see either all of its records or none.
type NamespaceStore struct {
	mu         sync.RWMutex
	namespaces map[string]*namespace
}

type namespace struct {
	info    domain.NamespaceInfo
	records []domain.IndexRecord
}

// NewNamespaceStore creates a new in-memory namespace store.
func NewNamespaceStore() *NamespaceStore {
	return &NamespaceStore{
		namespaces: make(map[string]*namespace),
	}
}

// NamespaceExists reports whether the namespace has a committed upsert.
func (s *NamespaceStore) NamespaceExists(_ context.Context, ns string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.namespaces[ns]
	return ok, nil
}

// Upsert stores all records and commits the namespace.
// Records replace any with the same ID, so repeating an upsert with
// identical records leaves the namespace unchanged.
func (s *NamespaceStore) Upsert(_ context.Context, ns string, records []domain.IndexRecord) error {
	if ns == "" {
		return fmt.Errorf("%w: namespace is required", domain.ErrInvalidInput)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: no records to upsert", domain.ErrInvalidInput)
	}
	dims, err := similarity.Dimensions(records)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[string]domain.IndexRecord)
	var order []string
	if existing, ok := s.namespaces[ns]; ok {
		if existing.info.Dimensions != dims {
			return fmt.Errorf("%w: namespace has %d dimensions, records have %d",
				domain.ErrDimensionMismatch, existing.info.Dimensions, dims)
		}
		for _, r := range existing.records {
			byID[r.ID] = r
			order = append(order, r.ID)
		}
	}
	for _, r := range records {
		if _, seen := byID[r.ID]; !seen {
			order = append(order, r.ID)
		}
		byID[r.ID] = copyRecord(r)
	}

	merged := make([]domain.IndexRecord, len(order))
	for i, id := range order {
		merged[i] = byID[id]
	}

	s.namespaces[ns] = &namespace{
		info: domain.NamespaceInfo{
			Namespace:   ns,
			Records:     len(merged),
			Dimensions:  dims,
			Fingerprint: domain.Fingerprint(merged),
			CompletedAt: time.Now(),
		},
		records: merged,
	}
	return nil
}

// Query returns the topK most similar records in the namespace.
func (s *NamespaceStore) Query(_ context.Context, ns string, vector []float32, topK int) ([]domain.RetrievalMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.namespaces[ns]
	if !ok {
		return []domain.RetrievalMatch{}, nil
	}
	if len(vector) != n.info.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, namespace has %d",
			domain.ErrDimensionMismatch, len(vector), n.info.Dimensions)
	}
	return similarity.TopK(vector, n.records, topK), nil
}

// Describe returns the success marker of a namespace.
func (s *NamespaceStore) Describe(_ context.Context, ns string) (*domain.NamespaceInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.namespaces[ns]
	if !ok {
		return nil, domain.ErrNotFound
	}
	info := n.info
	return &info, nil
}

// Close releases resources.
func (s *NamespaceStore) Close() error {
	return nil
}

func copyRecord(r domain.IndexRecord) domain.IndexRecord {
	vec := make([]float32, len(r.Vector))
	copy(vec, r.Vector)
	r.Vector = vec
	return r
}
