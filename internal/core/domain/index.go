package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"
)

// EmbeddingRole tells the embedding provider what a text will be used for.
// Documents and queries share one vector space but may be encoded
// differently, so the two must never be interchanged.
type EmbeddingRole string

// Available embedding roles.
const (
	// EmbeddingRoleDocument is used for chunk texts at ingestion time.
	EmbeddingRoleDocument EmbeddingRole = "document"

	// EmbeddingRoleQuery is used for search queries at question time.
	EmbeddingRoleQuery EmbeddingRole = "query"
)

// IsValid returns true if the role is recognised.
func (r EmbeddingRole) IsValid() bool {
	return r == EmbeddingRoleDocument || r == EmbeddingRoleQuery
}

// String returns the string representation.
func (r EmbeddingRole) String() string {
	return string(r)
}

// IndexRecord is a chunk paired with its embedding, stored in a namespace.
// Records are created only by ingestion and are read-only thereafter.
type IndexRecord struct {
	// ID is the synthetic record identifier (the chunk ID).
	ID string

	// Vector is the document-role embedding of Text.
	Vector []float32

	// Text is the raw chunk text, returned alongside scores at query time.
	Text string

	// Metadata carries chunk metadata (document_id, position, page, offset).
	Metadata map[string]any
}

// RetrievalMatch is a single similarity search hit.
// Matches are produced per query and never persisted.
type RetrievalMatch struct {
	// ID is the source record identifier.
	ID string

	// Text is the chunk text of the matched record.
	Text string

	// Score is the relevance score; higher is more relevant.
	Score float64

	// Metadata is the metadata stored with the record.
	Metadata map[string]any
}

// NamespaceInfo describes a fully ingested namespace.
// It is written as the terminal success marker of an upsert.
type NamespaceInfo struct {
	// Namespace is the namespace key (the document ID).
	Namespace string

	// Records is the number of records stored.
	Records int

	// Dimensions is the vector size of every record in the namespace.
	Dimensions int

	// Fingerprint is a digest of the record IDs; equal content yields
	// an equal fingerprint.
	Fingerprint string

	// CompletedAt is when the upsert committed.
	CompletedAt time.Time
}

// IngestionState is the ingestion state of a document.
// The only transition is NotIngested -> Ingested.
type IngestionState string

// Available ingestion states.
const (
	// IngestionStateNotIngested means no committed namespace exists.
	IngestionStateNotIngested IngestionState = "not_ingested"

	// IngestionStateIngested means the namespace marker is present.
	IngestionStateIngested IngestionState = "ingested"
)

// IngestResult is the outcome of EnsureIngested.
type IngestResult struct {
	// DocumentID is the ingested document.
	DocumentID string

	// AlreadyIngested is true when the call was a no-op.
	AlreadyIngested bool

	// Records is the number of records written by this call.
	Records int
}

// Fingerprint returns a stable digest of the given record IDs.
func Fingerprint(records []IndexRecord) string {
	ids := make([]string, len(records))
	for i := range records {
		ids[i] = records[i].ID
	}
	sort.Strings(ids)

	h := sha256.New()
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
