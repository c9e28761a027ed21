package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
		{"empty", nil, nil, 0.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Cosine(tt.a, tt.b), 1e-6)
		})
	}
}

func TestTopK(t *testing.T) {
	records := []domain.IndexRecord{
		{ID: "far", Vector: []float32{0, 1}, Text: "far"},
		{ID: "near", Vector: []float32{1, 0.1}, Text: "near"},
		{ID: "exact", Vector: []float32{1, 0}, Text: "exact"},
	}

	t.Run("orders by score and truncates", func(t *testing.T) {
		matches := TopK([]float32{1, 0}, records, 2)

		require.Len(t, matches, 2)
		assert.Equal(t, "exact", matches[0].ID)
		assert.Equal(t, "near", matches[1].ID)
		assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
		assert.Equal(t, "exact", matches[0].Text)
	})

	t.Run("fewer records than k", func(t *testing.T) {
		matches := TopK([]float32{1, 0}, records, 10)
		assert.Len(t, matches, 3)
		for i := 1; i < len(matches); i++ {
			assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		matches := TopK([]float32{1, 0}, nil, 5)
		assert.NotNil(t, matches)
		assert.Empty(t, matches)
	})

	t.Run("ties are stable by id", func(t *testing.T) {
		tied := []domain.IndexRecord{
			{ID: "b", Vector: []float32{1, 0}},
			{ID: "a", Vector: []float32{1, 0}},
		}
		matches := TopK([]float32{1, 0}, tied, 2)
		assert.Equal(t, "a", matches[0].ID)
		assert.Equal(t, "b", matches[1].ID)
	})
}

func TestDimensions(t *testing.T) {
	dims, err := Dimensions([]domain.IndexRecord{{ID: "a", Vector: []float32{1, 2}}, {ID: "b", Vector: []float32{3, 4}}})
	require.NoError(t, err)
	assert.Equal(t, 2, dims)

	_, err = Dimensions(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = Dimensions([]domain.IndexRecord{{ID: "a"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = Dimensions([]domain.IndexRecord{{ID: "a", Vector: []float32{1}}, {ID: "b", Vector: []float32{1, 2}}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}
