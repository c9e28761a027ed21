package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure ChatStore implements the interface.
var _ driven.ChatStore = (*ChatStore)(nil)

// ChatStore is an in-memory implementation of driven.ChatStore.
type ChatStore struct {
	mu    sync.RWMutex
	turns map[chatKey][]domain.ChatTurn
}

type chatKey struct {
	userID     string
	documentID string
}

// NewChatStore creates a new in-memory chat store.
func NewChatStore() *ChatStore {
	return &ChatStore{
		turns: make(map[chatKey][]domain.ChatTurn),
	}
}

// AppendTurn adds a turn to the end of the conversation.
func (s *ChatStore) AppendTurn(_ context.Context, userID, documentID string, turn domain.ChatTurn) error {
	if !turn.Role.IsValid() {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := chatKey{userID: userID, documentID: documentID}
	s.turns[key] = append(s.turns[key], turn)
	return nil
}

// ListTurns returns the conversation oldest first.
func (s *ChatStore) ListTurns(_ context.Context, userID, documentID string, limit int) ([]domain.ChatTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[chatKey{userID: userID, documentID: documentID}]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]domain.ChatTurn, len(turns))
	copy(out, turns)
	return out, nil
}
