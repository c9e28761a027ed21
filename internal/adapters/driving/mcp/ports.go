package mcp

import (
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// RAG ingests documents and answers questions.
	RAG driving.RAGService

	// Chat records questions and answers. Without it answers are not
	// added to the history and chat_history is unavailable.
	Chat driving.ChatService

	// Document lists and describes registered documents.
	Document driving.DocumentService

	// DefaultUser is used when a tool call names no user.
	DefaultUser string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.RAG == nil {
		return ErrMissingRAGService
	}
	return nil
}

func (p *Ports) user(id string) string {
	if id != "" {
		return id
	}
	return p.DefaultUser
}
