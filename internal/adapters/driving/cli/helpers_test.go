package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

var testCreated = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	details   *driving.DocumentDetails
	err       error
	gotOwner  string
	added     []string
	removed   []string
}

func (m *mockDocumentService) Add(_ context.Context, ownerID, contentRef, title, mimeType string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.gotOwner = ownerID
	m.added = append(m.added, contentRef)
	if title == "" {
		title = "report.pdf"
	}
	return &domain.Document{
		ID:         "doc-new",
		OwnerID:    ownerID,
		ContentRef: contentRef,
		Title:      title,
		MIMEType:   mimeType,
		CreatedAt:  testCreated,
	}, nil
}

func (m *mockDocumentService) List(_ context.Context, ownerID string) ([]domain.Document, error) {
	m.gotOwner = ownerID
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &m.details.Document, nil
}

func (m *mockDocumentService) GetDetails(_ context.Context, _ string) (*driving.DocumentDetails, error) {
	return m.details, m.err
}

func (m *mockDocumentService) Remove(_ context.Context, documentID string) error {
	if m.err != nil {
		return m.err
	}
	m.removed = append(m.removed, documentID)
	return nil
}

// mockRAGService is a mock implementation of driving.RAGService.
type mockRAGService struct {
	ingest *domain.IngestResult
	answer *domain.Answer
	err    error
	delay  time.Duration
	calls  int
}

func (m *mockRAGService) EnsureIngested(ctx context.Context, documentID string) (*domain.IngestResult, error) {
	m.calls++
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.ingest != nil {
		return m.ingest, nil
	}
	return &domain.IngestResult{DocumentID: documentID, Records: 3}, nil
}

func (m *mockRAGService) AnswerQuestion(_ context.Context, _, _, _ string) (*domain.Answer, error) {
	return m.answer, m.err
}

func (m *mockRAGService) Answer(_ context.Context, _ string, _ []domain.ChatTurn, _ string) (*domain.Answer, error) {
	return m.answer, m.err
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	answer    *domain.Answer
	turns     []domain.ChatTurn
	err       error
	questions []string
	gotUser   string
	gotLimit  int
}

func (m *mockChatService) Ask(_ context.Context, userID, _, question string) (*domain.Answer, error) {
	m.gotUser = userID
	m.questions = append(m.questions, question)
	return m.answer, m.err
}

func (m *mockChatService) History(_ context.Context, userID, _ string, limit int) ([]domain.ChatTurn, error) {
	m.gotUser, m.gotLimit = userID, limit
	return m.turns, m.err
}

// mockPromptAdmin is a mock implementation of PromptAdmin.
type mockPromptAdmin struct {
	reset []string
	err   error
}

func (m *mockPromptAdmin) Dir() string { return "/tmp/prompts" }

func (m *mockPromptAdmin) Path(name string) string { return "/tmp/prompts/" + name + ".txt" }

func (m *mockPromptAdmin) Reset(name string) error {
	if m.err != nil {
		return m.err
	}
	m.reset = append(m.reset, name)
	return nil
}

type testServices struct {
	docs    *mockDocumentService
	rag     *mockRAGService
	chat    *mockChatService
	prompts *mockPromptAdmin
}

func defaultTestServices() *testServices {
	return &testServices{
		docs: &mockDocumentService{
			documents: []domain.Document{
				{ID: "doc-1", OwnerID: "alice", Title: "Test Document 1", ContentRef: "/tmp/one.pdf", CreatedAt: testCreated},
				{ID: "doc-2", OwnerID: "bob", Title: "Test Document 2", ContentRef: "https://example.com/two", CreatedAt: testCreated},
			},
			details: &driving.DocumentDetails{
				Document: domain.Document{
					ID: "doc-1", OwnerID: "alice", Title: "Test Document 1",
					ContentRef: "/tmp/one.pdf", MIMEType: "application/pdf", CreatedAt: testCreated,
				},
				State: domain.IngestionStateIngested,
				Namespace: &domain.NamespaceInfo{
					Namespace: "doc-1", Records: 42, Dimensions: 768,
					Fingerprint: "ollama/nomic-embed-text", CompletedAt: testCreated,
				},
			},
		},
		rag: &mockRAGService{},
		chat: &mockChatService{
			answer: &domain.Answer{
				Text:        "The warranty lasts two years.",
				Outcome:     domain.AnswerOutcomeAnswered,
				SearchQuery: "warranty duration",
				Matches: []domain.RetrievalMatch{
					{ID: "doc-1#4", Text: "Warranty:\n  two years from purchase", Score: 0.87},
				},
			},
			turns: []domain.ChatTurn{
				{ID: "t1", Role: domain.ChatRoleHuman, Message: "How long is the warranty?", CreatedAt: testCreated},
				{ID: "t2", Role: domain.ChatRoleAssistant, Message: "Two years.", CreatedAt: testCreated.Add(time.Second)},
			},
		},
		prompts: &mockPromptAdmin{},
	}
}

// setupTestServices installs mock services and resets command state.
// The returned func restores the previous globals.
func setupTestServices() (*testServices, func()) {
	svc := defaultTestServices()

	oldDoc, oldRAG, oldChat := documentService, ragService, chatService
	oldSettings, oldPrompts := settingsService, promptAdmin
	oldStdin, oldTerminal, oldUser := stdin, isTerminal, userID
	oldInterval := progressInterval

	documentService = svc.docs
	ragService = svc.rag
	chatService = svc.chat
	promptAdmin = svc.prompts
	stdin = strings.NewReader("")
	isTerminal = func() bool { return false }
	userID = "alice"
	resetFlags()

	return svc, func() {
		documentService, ragService, chatService = oldDoc, oldRAG, oldChat
		settingsService, promptAdmin = oldSettings, oldPrompts
		stdin, isTerminal, userID = oldStdin, oldTerminal, oldUser
		progressInterval = oldInterval
		resetFlags()
	}
}

// resetFlags clears flag values left behind by a previous Execute.
func resetFlags() {
	addTitle, addMIMEType, addIngest, listAll = "", "", false, false
	askJSON, askSources = false, false
	historyLimit = 0
}

// executeCommand runs the root command with args and returns its output.
func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// errReader fails every read.
type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

var _ io.Reader = errReader{}
