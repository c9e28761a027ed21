package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// ChatStore is the append-only chat log, keyed by (user, document).
type ChatStore interface {
	// AppendTurn adds a turn to the end of the conversation.
	AppendTurn(ctx context.Context, userID, documentID string, turn domain.ChatTurn) error

	// ListTurns returns the conversation in append order (oldest first).
	// A limit of zero or less returns every turn; otherwise only the
	// most recent limit turns are returned, still oldest first.
	ListTurns(ctx context.Context, userID, documentID string, limit int) ([]domain.ChatTurn, error)
}
