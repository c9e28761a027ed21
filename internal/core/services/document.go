package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages the document registry.
type DocumentService struct {
	docStore driven.DocumentStore
	store    driven.NamespaceStore
	now      func() time.Time
}

// NewDocumentService creates a new document service.
// The namespace store is optional; without it details report no ingestion state.
func NewDocumentService(docStore driven.DocumentStore, store driven.NamespaceStore) *DocumentService {
	return &DocumentService{
		docStore: docStore,
		store:    store,
		now:      time.Now,
	}
}

// Add registers a document by content reference.
func (s *DocumentService) Add(ctx context.Context, ownerID, contentRef, title, mimeType string) (*domain.Document, error) {
	contentRef = strings.TrimSpace(contentRef)
	if contentRef == "" {
		return nil, fmt.Errorf("%w: content reference is required", domain.ErrInvalidInput)
	}
	if title == "" {
		title = titleFromRef(contentRef)
	}
	if mimeType == "" {
		mimeType = mimeTypeFromRef(contentRef)
	}

	doc := &domain.Document{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		ContentRef: contentRef,
		Title:      title,
		MIMEType:   mimeType,
		CreatedAt:  s.now(),
	}
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	return doc, nil
}

// List returns documents owned by a user.
func (s *DocumentService) List(ctx context.Context, ownerID string) ([]domain.Document, error) {
	return s.docStore.ListDocuments(ctx, ownerID)
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.docStore.GetDocument(ctx, documentID)
}

// GetDetails returns a document together with its ingestion state.
func (s *DocumentService) GetDetails(ctx context.Context, documentID string) (*driving.DocumentDetails, error) {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	details := &driving.DocumentDetails{
		Document: *doc,
		State:    domain.IngestionStateNotIngested,
	}
	if s.store == nil {
		return details, nil
	}

	info, err := s.store.Describe(ctx, documentID)
	switch {
	case err == nil:
		details.State = domain.IngestionStateIngested
		details.Namespace = info
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, domain.WrapProviderError(domain.ErrVectorStore, err)
	}
	return details, nil
}

// Remove deletes a document from the registry.
func (s *DocumentService) Remove(ctx context.Context, documentID string) error {
	return s.docStore.DeleteDocument(ctx, documentID)
}

// refPath returns the path component of a URL, or the reference itself.
func refPath(ref string) string {
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Path != "" {
		return u.Path
	}
	return ref
}

// textTypes covers extensions missing from minimal mime.types tables.
var textTypes = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".pdf":      "application/pdf",
	".html":     "text/html",
	".htm":      "text/html",
}

// mimeTypeFromRef guesses a MIME type from the reference extension.
// Unknown extensions return "" and are sniffed at extraction time.
func mimeTypeFromRef(ref string) string {
	ext := strings.ToLower(path.Ext(refPath(ref)))
	if t, ok := textTypes[ext]; ok {
		return t
	}
	t := mime.TypeByExtension(ext)
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}

// titleFromRef derives a title from the last path element of a reference.
func titleFromRef(ref string) string {
	base := filepath.Base(refPath(ref))
	if base == "." || base == "/" || base == "" {
		return ref
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	return base
}
