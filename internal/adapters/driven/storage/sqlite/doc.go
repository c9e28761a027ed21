// Package sqlite keeps docchat's local state in one SQLite file using
// modernc.org/sqlite, so no cgo is needed.
//
// Store exposes three port views over the same connection pool:
//
//   - DocumentStore, the document registry
//   - ChatStore, an append-only log per (user, document)
//   - NamespaceStore, vector namespaces scored in process, each committed
//     by a marker row written in the same transaction as its records
//
// The schema lives in migrations/ as numbered SQL files. The database is
// opened in WAL mode with a busy timeout, so concurrent readers do not
// block the single writer.
package sqlite
