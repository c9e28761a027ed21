package chunker

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

const threeParagraphs = "Go was designed at Google in 2007.\n\n" +
	"Goroutines are lightweight threads managed by the runtime.\n\n" +
	"Channels let goroutines communicate safely."

func contents(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

func sentences(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("Sentence number %d is here.", i)
	}
	return strings.Join(parts, " ")
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		assert.Equal(t, DefaultChunkSize, p.ChunkSize())
		assert.Equal(t, DefaultChunkOverlap, p.Overlap())
	})

	t.Run("custom values", func(t *testing.T) {
		p := New(WithChunkSize(500), WithOverlap(100))
		assert.Equal(t, 500, p.ChunkSize())
		assert.Equal(t, 100, p.Overlap())
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		assert.Equal(t, 25, p.Overlap())
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		assert.Equal(t, DefaultChunkSize, p.ChunkSize())
		assert.Equal(t, DefaultChunkOverlap, p.Overlap())
	})
}

func TestProcessor_Name(t *testing.T) {
	assert.Equal(t, "recursive", New().Name())
}

func TestProcessor_Chunk_SmallDocumentIsOneChunk(t *testing.T) {
	chunks, err := New().Chunk(context.Background(), "doc", []domain.Page{{Number: 1, Text: threeParagraphs}})

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, threeParagraphs, chunks[0].Content)
	assert.Equal(t, "doc", chunks[0].DocumentID)
	assert.Equal(t, 0, chunks[0].Position)
	assert.Equal(t, 1, chunks[0].Page)
}

func TestProcessor_Chunk_PrefersParagraphBoundaries(t *testing.T) {
	p := New(WithChunkSize(60), WithOverlap(10))

	chunks, err := p.Chunk(context.Background(), "doc", []domain.Page{{Number: 1, Text: threeParagraphs}})

	require.NoError(t, err)
	assert.Equal(t, []string{
		"Go was designed at Google in 2007.",
		"Goroutines are lightweight threads managed by the runtime.",
		"Channels let goroutines communicate safely.",
	}, contents(chunks))
}

func TestProcessor_Chunk_SentencesOverlap(t *testing.T) {
	p := New(WithChunkSize(60), WithOverlap(30))

	chunks, err := p.Chunk(context.Background(), "doc", []domain.Page{{Number: 1, Text: sentences(10)}})

	require.NoError(t, err)
	require.Len(t, chunks, 9)
	assert.Equal(t, "Sentence number 0 is here. Sentence number 1 is here.", chunks[0].Content)
	assert.Equal(t, "Sentence number 1 is here. Sentence number 2 is here.", chunks[1].Content)
	for i := 1; i < len(chunks); i++ {
		shared := fmt.Sprintf("Sentence number %d is here.", i)
		assert.True(t, strings.HasSuffix(chunks[i-1].Content, shared))
		assert.True(t, strings.HasPrefix(chunks[i].Content, shared))
	}
}

func TestProcessor_Chunk_HardSplitsUnbrokenText(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(20))

	chunks, err := p.Chunk(context.Background(), "doc", []domain.Page{{Number: 1, Text: strings.Repeat("x", 250)}})

	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int{0, 80, 160}, []int{chunks[0].Offset, chunks[1].Offset, chunks[2].Offset})
	assert.Len(t, chunks[0].Content, 100)
	assert.Len(t, chunks[1].Content, 100)
	assert.Len(t, chunks[2].Content, 90)
}

func TestProcessor_Chunk_HardSplitChunksOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 3)
	p := New(WithChunkSize(10), WithOverlap(4))

	chunks, err := p.Chunk(context.Background(), "doc", []domain.Page{{Number: 1, Text: text}})

	require.NoError(t, err)
	require.Len(t, chunks, 5)
	assert.Equal(t, []string{"abcdefghij", "ghijabcdef", "cdefghijab", "ijabcdefgh", "efghij"}, contents(chunks))
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		assert.Equal(t, prev.Offset+6, cur.Offset)
		assert.Equal(t, prev.Content[len(prev.Content)-4:], cur.Content[:4])
	}
	assert.Equal(t, len(text), chunks[len(chunks)-1].Offset+len(chunks[len(chunks)-1].Content))
}

func TestProcessor_Chunk_HardSplitKeepsRunesWhole(t *testing.T) {
	p := New(WithChunkSize(5), WithOverlap(2))

	chunks, err := p.Chunk(context.Background(), "doc", []domain.Page{{Number: 1, Text: strings.Repeat("日本語", 4)}})

	require.NoError(t, err)
	require.Len(t, chunks, 4)
	for i, c := range chunks {
		assert.True(t, utf8.ValidString(c.Content))
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 5)
		if i > 0 {
			prev := []rune(chunks[i-1].Content)
			assert.Equal(t, string(prev[len(prev)-2:]), string([]rune(c.Content)[:2]))
		}
	}
}

func TestProcessor_Chunk_RespectsSizeInCharacters(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 200) + strings.Repeat("日本語", 300)
	p := New(WithChunkSize(80), WithOverlap(16))

	chunks, err := p.Chunk(context.Background(), "doc", []domain.Page{{Number: 1, Text: text}})

	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 80)
		assert.True(t, utf8.ValidString(c.Content))
		assert.Equal(t, utf8.RuneCountInString(c.Content), c.Metadata["chars"])
	}
}

func TestProcessor_Chunk_OffsetsPointIntoPage(t *testing.T) {
	pages := []domain.Page{
		{Number: 1, Text: "  " + sentences(6)},
		{Number: 2, Text: threeParagraphs},
	}
	p := New(WithChunkSize(60), WithOverlap(20))

	chunks, err := p.Chunk(context.Background(), "doc", pages)

	require.NoError(t, err)
	for i, c := range chunks {
		assert.Equal(t, i, c.Position)
		page := pages[c.Page-1].Text
		assert.Equal(t, c.Content, page[c.Offset:c.Offset+len(c.Content)])
	}
	assert.Equal(t, 2, chunks[len(chunks)-1].Page, "pages are chunked independently")
	assert.Equal(t, 2, chunks[0].Offset, "leading whitespace is trimmed")
}

func TestProcessor_Chunk_Deterministic(t *testing.T) {
	pages := []domain.Page{{Number: 1, Text: sentences(40)}}
	p := New(WithChunkSize(120), WithOverlap(40))

	first, err := p.Chunk(context.Background(), "doc", pages)
	require.NoError(t, err)
	second, err := New(WithChunkSize(120), WithOverlap(40)).Chunk(context.Background(), "doc", pages)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	other, err := p.Chunk(context.Background(), "other-doc", pages)
	require.NoError(t, err)
	assert.NotEqual(t, first[0].ID, other[0].ID, "IDs are scoped to the document")
}

func TestProcessor_Chunk_EmptyPages(t *testing.T) {
	chunks, err := New().Chunk(context.Background(), "doc", []domain.Page{{Number: 1, Text: ""}, {Number: 2, Text: " \n\n "}})

	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestProcessor_Chunk_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Chunk(ctx, "doc", []domain.Page{{Number: 1, Text: "text"}})

	assert.ErrorIs(t, err, context.Canceled)
}
