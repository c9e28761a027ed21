package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func TestExtractionService_Extract(t *testing.T) {
	source := &mockContentSource{data: map[string]string{"ref": threeParagraphs}}
	svc := NewExtractionService(source, &mockExtractorRegistry{}, mockChunker{}, testSettings())
	doc := &domain.Document{ID: "d", ContentRef: "ref"}

	first, err := svc.Extract(context.Background(), doc)
	require.NoError(t, err)
	second, err := svc.Extract(context.Background(), doc)
	require.NoError(t, err)

	assert.Len(t, first, 3)
	assert.Equal(t, first, second, "same content yields the same chunks")
}

func TestExtractionService_Extract_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     *domain.Document
		data    map[string]string
		parse   error
		wantErr error
	}{
		{"no reference", &domain.Document{ID: "d"}, nil, nil, domain.ErrSourceUnavailable},
		{"missing content", &domain.Document{ID: "d", ContentRef: "gone"}, map[string]string{}, nil, domain.ErrSourceUnavailable},
		{"parse failure", &domain.Document{ID: "d", ContentRef: "ref"}, map[string]string{"ref": "x"}, domain.ErrUnsupportedFormat, domain.ErrUnsupportedFormat},
		{"no text", &domain.Document{ID: "d", ContentRef: "ref"}, map[string]string{"ref": "   "}, nil, domain.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &mockContentSource{data: tt.data}
			svc := NewExtractionService(source, &mockExtractorRegistry{err: tt.parse}, mockChunker{}, testSettings())

			_, err := svc.Extract(context.Background(), tt.doc)

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExtractionService_DeclaredMIMETypeWins(t *testing.T) {
	source := &mockContentSource{data: map[string]string{"ref": "text"}}
	registry := &recordingRegistry{}
	svc := NewExtractionService(source, registry, mockChunker{}, testSettings())

	_, err := svc.Extract(context.Background(), &domain.Document{ID: "d", ContentRef: "ref", MIMEType: "text/markdown"})

	require.NoError(t, err)
	assert.Equal(t, "text/markdown", registry.mimeType)
}

func TestExtractionService_InterruptedParseIsNotUnsupported(t *testing.T) {
	killed := errors.New("pdftotext: signal: killed")
	expired := func() context.Context {
		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		t.Cleanup(cancel)
		return ctx
	}
	cancelled := func() context.Context {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	tests := []struct {
		name    string
		ctx     context.Context
		parse   error
		wantErr error
		fatal   bool
	}{
		{"deadline while parsing", expired(), killed, domain.ErrTimeout, false},
		{"cancelled while parsing", cancelled(), killed, context.Canceled, false},
		{"transport timeout", context.Background(), context.DeadlineExceeded, domain.ErrTimeout, false},
		{"malformed content", context.Background(), errors.New("bad xref table"), domain.ErrUnsupportedFormat, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &mockContentSource{data: map[string]string{"ref": "x"}}
			svc := NewExtractionService(source, &failingRegistry{err: tt.parse}, mockChunker{}, testSettings())

			_, err := svc.Extract(tt.ctx, &domain.Document{ID: "d", ContentRef: "ref"})

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.fatal, domain.IsFatal(err))
		})
	}
}

// failingRegistry fails every parse with err.
type failingRegistry struct {
	mockExtractorRegistry
	err error
}

func (r *failingRegistry) Extract(context.Context, *domain.RawContent) ([]domain.Page, error) {
	return nil, r.err
}

type recordingRegistry struct {
	mockExtractorRegistry
	mimeType string
}

func (r *recordingRegistry) Extract(ctx context.Context, raw *domain.RawContent) ([]domain.Page, error) {
	r.mimeType = raw.MIMEType
	return r.mockExtractorRegistry.Extract(ctx, raw)
}
