package mcp

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// mockRAGService is a mock implementation of driving.RAGService.
type mockRAGService struct {
	ingest    *domain.IngestResult
	answer    *domain.Answer
	err       error
	gotUser   string
	gotDocID  string
	gotPrompt string
}

func (m *mockRAGService) EnsureIngested(_ context.Context, documentID string) (*domain.IngestResult, error) {
	m.gotDocID = documentID
	return m.ingest, m.err
}

func (m *mockRAGService) AnswerQuestion(_ context.Context, userID, documentID, question string) (*domain.Answer, error) {
	m.gotUser, m.gotDocID, m.gotPrompt = userID, documentID, question
	return m.answer, m.err
}

func (m *mockRAGService) Answer(
	_ context.Context, documentID string, _ []domain.ChatTurn, question string,
) (*domain.Answer, error) {
	m.gotDocID, m.gotPrompt = documentID, question
	return m.answer, m.err
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	answer   *domain.Answer
	turns    []domain.ChatTurn
	err      error
	gotUser  string
	gotLimit int
	asked    int
}

func (m *mockChatService) Ask(_ context.Context, userID, _, _ string) (*domain.Answer, error) {
	m.gotUser = userID
	m.asked++
	return m.answer, m.err
}

func (m *mockChatService) History(_ context.Context, userID, _ string, limit int) ([]domain.ChatTurn, error) {
	m.gotUser, m.gotLimit = userID, limit
	return m.turns, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	details   *driving.DocumentDetails
	err       error
}

func (m *mockDocumentService) Add(_ context.Context, _, _, _, _ string) (*domain.Document, error) {
	return nil, m.err
}

func (m *mockDocumentService) List(_ context.Context, _ string) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	if m.details == nil {
		return nil, m.err
	}
	return &m.details.Document, m.err
}

func (m *mockDocumentService) GetDetails(_ context.Context, _ string) (*driving.DocumentDetails, error) {
	return m.details, m.err
}

func (m *mockDocumentService) Remove(_ context.Context, _ string) error {
	return m.err
}
