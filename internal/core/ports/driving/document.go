package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// DocumentService manages the document registry.
type DocumentService interface {
	// Add registers a document by content reference (URL or path).
	// An empty title is derived from the reference.
	Add(ctx context.Context, ownerID, contentRef, title, mimeType string) (*domain.Document, error)

	// List returns documents owned by a user. An empty ownerID lists all.
	List(ctx context.Context, ownerID string) ([]domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// GetDetails returns a document together with its ingestion state.
	GetDetails(ctx context.Context, documentID string) (*DocumentDetails, error)

	// Remove deletes a document from the registry.
	// Its vector namespace is left in place.
	Remove(ctx context.Context, documentID string) error
}

// DocumentDetails provides a standardised view of a document for display.
type DocumentDetails struct {
	// Document is the registry entry.
	Document domain.Document

	// State is the ingestion state.
	State domain.IngestionState

	// Namespace is the committed namespace marker, nil when not ingested.
	Namespace *domain.NamespaceInfo
}
