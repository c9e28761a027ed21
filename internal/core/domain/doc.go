// Package domain defines the core business entities for docchat.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An uploaded document a user can converse with
//   - Chunk: A bounded-size fragment of a document's text
//   - IndexRecord: A chunk paired with its embedding inside a namespace
//   - RetrievalMatch: A scored chunk returned by similarity search
//   - ChatTurn: One message in a per-user, per-document conversation
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
