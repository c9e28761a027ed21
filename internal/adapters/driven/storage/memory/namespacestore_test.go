package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func testRecords(n int) []domain.IndexRecord {
	records := make([]domain.IndexRecord, n)
	for i := range records {
		records[i] = domain.IndexRecord{
			ID:       fmt.Sprintf("rec-%d", i),
			Vector:   []float32{float32(i + 1), 1},
			Text:     fmt.Sprintf("chunk %d", i),
			Metadata: map[string]any{"position": i},
		}
	}
	return records
}

func TestNamespaceStore_ExistsOnlyAfterUpsert(t *testing.T) {
	store := NewNamespaceStore()
	ctx := context.Background()

	exists, err := store.NamespaceExists(ctx, "doc-1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Upsert(ctx, "doc-1", testRecords(3)))

	exists, err = store.NamespaceExists(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, exists)

	info, err := store.Describe(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 3, info.Records)
	assert.Equal(t, 2, info.Dimensions)
	assert.Equal(t, domain.Fingerprint(testRecords(3)), info.Fingerprint)
}

func TestNamespaceStore_UpsertIsIdempotent(t *testing.T) {
	store := NewNamespaceStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "doc-1", testRecords(3)))
	require.NoError(t, store.Upsert(ctx, "doc-1", testRecords(3)))

	info, err := store.Describe(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 3, info.Records)
}

func TestNamespaceStore_UpsertRejectsBadInput(t *testing.T) {
	store := NewNamespaceStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.Upsert(ctx, "", testRecords(1)), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.Upsert(ctx, "doc", nil), domain.ErrInvalidInput)

	mixed := []domain.IndexRecord{
		{ID: "a", Vector: []float32{1, 2}},
		{ID: "b", Vector: []float32{1, 2, 3}},
	}
	assert.ErrorIs(t, store.Upsert(ctx, "doc", mixed), domain.ErrDimensionMismatch)

	exists, err := store.NamespaceExists(ctx, "doc")
	require.NoError(t, err)
	assert.False(t, exists, "failed upsert must not commit the namespace")
}

func TestNamespaceStore_Query(t *testing.T) {
	store := NewNamespaceStore()
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, "doc-1", testRecords(8)))
	require.NoError(t, store.Upsert(ctx, "doc-2", []domain.IndexRecord{{ID: "other", Vector: []float32{1, 0}, Text: "other doc"}}))

	matches, err := store.Query(ctx, "doc-1", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 5)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
	for _, m := range matches {
		assert.NotEqual(t, "other", m.ID, "no cross-namespace leakage")
		assert.NotEmpty(t, m.Text)
	}
}

func TestNamespaceStore_Query_EmptyNamespace(t *testing.T) {
	store := NewNamespaceStore()

	matches, err := store.Query(context.Background(), "missing", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestNamespaceStore_Query_DimensionMismatch(t *testing.T) {
	store := NewNamespaceStore()
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, "doc-1", testRecords(2)))

	_, err := store.Query(ctx, "doc-1", []float32{1, 0, 0}, 5)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestNamespaceStore_Describe_NotFound(t *testing.T) {
	store := NewNamespaceStore()

	_, err := store.Describe(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNamespaceStore_ConcurrentUpserts(t *testing.T) {
	store := NewNamespaceStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Upsert(ctx, "doc-1", testRecords(4))
			_, _ = store.Query(ctx, "doc-1", []float32{1, 1}, 3)
		}()
	}
	wg.Wait()

	info, err := store.Describe(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 4, info.Records)
}
