package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// RAGService is the public surface of the retrieval-augmented generation engine.
type RAGService interface {
	// EnsureIngested embeds and stores a document unless its namespace
	// already exists. Safe to call before every question.
	EnsureIngested(ctx context.Context, documentID string) (*domain.IngestResult, error)

	// AnswerQuestion answers a question about a document using the user's
	// chat history, which must not yet contain the question itself.
	// Answer.Text is always populated. The error is non-nil only for
	// structural failures (dimension mismatch, unsupported format).
	AnswerQuestion(ctx context.Context, userID, documentID, question string) (*domain.Answer, error)

	// Answer runs the pipeline with an explicit history, ordered newest first.
	Answer(ctx context.Context, documentID string, history []domain.ChatTurn, question string) (*domain.Answer, error)
}

// ChatService wraps the RAG engine with chat log bookkeeping.
type ChatService interface {
	// Ask appends the human turn, answers the question, and appends the
	// assistant turn.
	Ask(ctx context.Context, userID, documentID, question string) (*domain.Answer, error)

	// History returns the conversation oldest first.
	// A limit of zero or less returns every turn.
	History(ctx context.Context, userID, documentID string, limit int) ([]domain.ChatTurn, error)
}
