package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

var _ driven.ChatStore = (*chatStore)(nil)

// chatStore keeps one append-only log per (user, document). The seq
// column fixes append order independently of timestamps.
type chatStore struct {
	db *sql.DB
}

func (s *chatStore) AppendTurn(ctx context.Context, userID, documentID string, turn domain.ChatTurn) error {
	if !turn.Role.IsValid() {
		return fmt.Errorf("%w: chat role %q", domain.ErrInvalidInput, turn.Role)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_turns (id, user_id, document_id, role, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, turn.ID, userID, documentID, string(turn.Role), turn.Message, turn.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("appending chat turn: %w", err)
	}
	return nil
}

// ListTurns returns the conversation oldest first. A positive limit keeps
// only the most recent turns.
func (s *chatStore) ListTurns(ctx context.Context, userID, documentID string, limit int) ([]domain.ChatTurn, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, message, created_at FROM (
			SELECT seq, id, role, message, created_at
			FROM chat_turns
			WHERE user_id = ? AND document_id = ?
			ORDER BY seq DESC
			LIMIT ?
		) ORDER BY seq
	`, userID, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing chat turns: %w", err)
	}
	defer rows.Close()

	turns := []domain.ChatTurn{}
	for rows.Next() {
		var (
			turn domain.ChatTurn
			role string
		)
		if err := rows.Scan(&turn.ID, &role, &turn.Message, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat turn: %w", err)
		}
		turn.Role = domain.ChatRole(role)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing chat turns: %w", err)
	}
	return turns, nil
}
