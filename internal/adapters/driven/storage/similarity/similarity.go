// Package similarity ranks stored vectors against a query vector.
// It backs the namespace stores that search in process.
package similarity

import (
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// Cosine computes the cosine similarity between two vectors of equal length.
//
// Returns a value between -1 and 1. Mismatched lengths, empty vectors and
// zero vectors yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}

	if magA == 0.0 || magB == 0.0 {
		return 0.0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// TopK scores every record against query and returns the best k matches
// ordered by non-increasing score. Ties are broken by record ID so the
// order is stable.
func TopK(query []float32, records []domain.IndexRecord, k int) []domain.RetrievalMatch {
	if k <= 0 || len(records) == 0 {
		return []domain.RetrievalMatch{}
	}

	matches := make([]domain.RetrievalMatch, len(records))
	for i := range records {
		matches[i] = domain.RetrievalMatch{
			ID:       records[i].ID,
			Text:     records[i].Text,
			Score:    Cosine(query, records[i].Vector),
			Metadata: records[i].Metadata,
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// Dimensions returns the vector size shared by records.
// Fails with domain.ErrDimensionMismatch when records disagree and with
// domain.ErrInvalidInput when a record has no vector.
func Dimensions(records []domain.IndexRecord) (int, error) {
	if len(records) == 0 {
		return 0, fmt.Errorf("%w: no records", domain.ErrInvalidInput)
	}
	dims := len(records[0].Vector)
	if dims == 0 {
		return 0, fmt.Errorf("%w: record %s has no vector", domain.ErrInvalidInput, records[0].ID)
	}
	for _, r := range records[1:] {
		if len(r.Vector) != dims {
			return 0, fmt.Errorf("%w: record %s has %d dimensions, expected %d",
				domain.ErrDimensionMismatch, r.ID, len(r.Vector), dims)
		}
	}
	return dims, nil
}
