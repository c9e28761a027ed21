// Package chunker provides a recursive, boundary-aware text splitter.
//
// Text is split at paragraph breaks first, then line breaks, then sentence
// ends, then spaces, and only as a last resort at arbitrary characters.
// Splitting is a pure function of the input and the configured size and
// overlap, so the same document always yields the same chunks.
package chunker

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Name is the registry name of the recursive splitter.
const Name = "recursive"

// separatorLevels are tried in order; each level lists interchangeable separators.
var separatorLevels = [][]string{
	{"\n\n"},
	{"\n"},
	{". ", "? ", "! ", ".\t", "?\t", "!\t"},
	{" ", "\t"},
}

// chunkIDSpace namespaces deterministic chunk IDs.
var chunkIDSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("docchat:chunk"))

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// Processor splits page text into overlapping chunks.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return Name
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Chunk splits each page independently, so a chunk never spans two pages.
// Positions are numbered across the whole document.
func (p *Processor) Chunk(ctx context.Context, documentID string, pages []domain.Page) ([]domain.Chunk, error) {
	var chunks []domain.Chunk

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, s := range p.splitPage(page.Text) {
			content := page.Text[s.start:s.end]
			position := len(chunks)
			chunks = append(chunks, domain.Chunk{
				ID:         chunkID(documentID, position, content),
				DocumentID: documentID,
				Content:    content,
				Position:   position,
				Page:       page.Number,
				Offset:     s.start,
				Metadata: map[string]any{
					"chars": utf8.RuneCountInString(content),
				},
			})
		}
	}

	return chunks, nil
}

// chunkID derives a stable ID from the document, position and content.
func chunkID(documentID string, position int, content string) string {
	name := fmt.Sprintf("%s/%d/%s", documentID, position, content)
	return uuid.NewSHA1(chunkIDSpace, []byte(name)).String()
}

// span is a byte range of the page text with its length in characters.
type span struct {
	start, end int
	runes      int
}

// splitPage returns trimmed, non-empty chunk spans for one page.
func (p *Processor) splitPage(text string) []span {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	units := p.split(text, 0, len(text), 0)
	return p.merge(text, units)
}

// split breaks text[start:end] into contiguous units no longer than the
// chunk size, descending separator levels only for oversized units.
func (p *Processor) split(text string, start, end, level int) []span {
	n := utf8.RuneCountInString(text[start:end])
	if n <= p.chunkSize {
		return []span{{start, end, n}}
	}

	for ; level < len(separatorLevels); level++ {
		cuts := cutPoints(text, start, end, separatorLevels[level])
		if len(cuts) == 0 {
			continue
		}
		var units []span
		prev := start
		for _, cut := range append(cuts, end) {
			if cut == prev {
				continue
			}
			units = append(units, p.split(text, prev, cut, level+1)...)
			prev = cut
		}
		return units
	}

	return p.hardSplit(text, start, end)
}

// cutPoints returns the byte offsets just after each separator occurrence.
func cutPoints(text string, start, end int, seps []string) []int {
	var cuts []int
	for i := start; i < end; {
		matched := false
		for _, sep := range seps {
			if i+len(sep) <= end && strings.HasPrefix(text[i:end], sep) {
				i += len(sep)
				if i < end {
					cuts = append(cuts, i)
				}
				matched = true
				break
			}
		}
		if !matched {
			i++
		}
	}
	return cuts
}

// hardSplit breaks text[start:end] into single characters, so merge can
// pack them into full chunks and still carry overlap characters forward.
func (p *Processor) hardSplit(text string, start, end int) []span {
	units := make([]span, 0, end-start)
	for i, r := range text[start:end] {
		units = append(units, span{start + i, start + i + utf8.RuneLen(r), 1})
	}
	return units
}

// merge packs consecutive units into chunks of at most chunkSize characters,
// carrying up to overlap characters of trailing units into the next chunk.
func (p *Processor) merge(text string, units []span) []span {
	var (
		out    []span
		window []span
		total  int
	)

	emit := func() {
		s := trim(text, span{window[0].start, window[len(window)-1].end, 0})
		if s.end > s.start && (len(out) == 0 || out[len(out)-1] != s) {
			out = append(out, s)
		}
	}

	for _, u := range units {
		if total+u.runes > p.chunkSize && len(window) > 0 {
			emit()
			for len(window) > 0 && (total > p.overlap || total+u.runes > p.chunkSize) {
				total -= window[0].runes
				window = window[1:]
			}
		}
		window = append(window, u)
		total += u.runes
	}
	if len(window) > 0 {
		emit()
	}

	return out
}

// trim narrows a span to exclude leading and trailing whitespace.
func trim(text string, s span) span {
	inner := text[s.start:s.end]
	left := len(inner) - len(strings.TrimLeft(inner, " \t\r\n\f\v"))
	right := len(strings.TrimRight(inner, " \t\r\n\f\v"))
	if right <= left {
		return span{s.start, s.start, 0}
	}
	out := span{s.start + left, s.start + right, 0}
	out.runes = utf8.RuneCountInString(text[out.start:out.end])
	return out
}
