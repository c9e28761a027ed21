package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// ChatService records a conversation around the RAG engine.
type ChatService struct {
	rag          driving.RAGService
	chatStore    driven.ChatStore
	historyLimit int
	now          func() time.Time
}

// NewChatService creates a new chat service.
func NewChatService(rag driving.RAGService, chatStore driven.ChatStore, settings domain.RAGSettings) *ChatService {
	return &ChatService{
		rag:          rag,
		chatStore:    chatStore,
		historyLimit: settings.HistoryLimit,
		now:          time.Now,
	}
}

// Ask appends the human turn, answers the question, and appends the
// assistant turn. History is read before the human turn is appended, so
// the engine never sees the in-flight question twice.
func (s *ChatService) Ask(ctx context.Context, userID, documentID, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	turns, err := s.chatStore.ListTurns(ctx, userID, documentID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	history := domain.NewestFirst(turns)

	if err := s.append(ctx, userID, documentID, domain.ChatRoleHuman, question); err != nil {
		return nil, err
	}

	answer, answerErr := s.rag.Answer(ctx, documentID, history, question)
	if answer == nil {
		answer = &domain.Answer{Text: MessageGenerationFailed, Outcome: domain.AnswerOutcomeFailed}
	}
	if strings.TrimSpace(answer.Text) == "" {
		answer.Text = MessageGenerationFailed
	}

	if err := s.append(ctx, userID, documentID, domain.ChatRoleAssistant, answer.Text); err != nil {
		logger.Warn("Could not record assistant turn: %v", err)
		if answerErr == nil {
			answerErr = err
		}
	}

	return answer, answerErr
}

// History returns the conversation oldest first.
func (s *ChatService) History(ctx context.Context, userID, documentID string, limit int) ([]domain.ChatTurn, error) {
	return s.chatStore.ListTurns(ctx, userID, documentID, limit)
}

func (s *ChatService) append(ctx context.Context, userID, documentID string, role domain.ChatRole, message string) error {
	turn := domain.ChatTurn{
		ID:        uuid.NewString(),
		Role:      role,
		Message:   message,
		CreatedAt: s.now(),
	}
	if err := s.chatStore.AppendTurn(ctx, userID, documentID, turn); err != nil {
		return fmt.Errorf("append %s turn: %w", role, err)
	}
	return nil
}
