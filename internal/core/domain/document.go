package domain

import "time"

// Document represents an uploaded document.
// Documents are created on upload and are read-only to the RAG engine.
type Document struct {
	// ID is the opaque identifier, stable across the document's lifetime.
	// It also names the document's vector namespace.
	ID string

	// OwnerID is the user that uploaded the document.
	OwnerID string

	// ContentRef is a fetchable reference to the raw content (URL or path).
	ContentRef string

	// Title is the human-readable title.
	Title string

	// MIMEType is the declared content type (e.g., "application/pdf").
	// Empty means the type is sniffed from the fetched bytes.
	MIMEType string

	// CreatedAt is when the document was registered.
	CreatedAt time.Time
}

// RawContent represents opaque bytes fetched from a content source.
type RawContent struct {
	// Ref is the reference the bytes were fetched from.
	Ref string

	// MIMEType is the content type reported by the source, if any.
	MIMEType string

	// Data is the raw bytes.
	Data []byte
}

// Page is the text of one page after parsing.
// Formats without pages produce a single page numbered 1.
type Page struct {
	// Number is the 1-based page number.
	Number int

	// Text is the extracted page text.
	Text string
}

// Chunk represents a bounded-size fragment of a document's text.
// Chunks are never mutated after creation.
type Chunk struct {
	// ID is derived from the document ID, position and content,
	// so the same content always yields the same ID.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Page is the 1-based source page.
	Page int

	// Offset is the byte offset of the chunk within its page text.
	Offset int

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}
