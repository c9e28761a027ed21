// Package mcp provides an MCP (Model Context Protocol) server adapter for docchat.
// It lets AI assistants ingest documents, ask questions about them and read
// the chat history through docchat's RAG engine.
package mcp

import "errors"

// ErrMissingRAGService is returned when the RAG service is not provided.
var ErrMissingRAGService = errors.New("mcp: RAG service is required")
