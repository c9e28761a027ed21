package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// --- Mock implementations of the driven ports ---

// mockContentSource serves fixed bytes per reference.
type mockContentSource struct {
	mu    sync.Mutex
	data  map[string]string
	err   error
	calls int
}

func (m *mockContentSource) Fetch(_ context.Context, ref string) (*domain.RawContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	text, ok := m.data[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSourceUnavailable, ref)
	}
	return &domain.RawContent{Ref: ref, MIMEType: "text/plain", Data: []byte(text)}, nil
}

func (m *mockContentSource) fetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockExtractorRegistry treats every input as one plain text page.
type mockExtractorRegistry struct {
	err error
}

func (m *mockExtractorRegistry) Extract(_ context.Context, raw *domain.RawContent) ([]domain.Page, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []domain.Page{{Number: 1, Text: string(raw.Data)}}, nil
}

func (m *mockExtractorRegistry) Register(driven.Extractor)    {}
func (m *mockExtractorRegistry) SupportedMIMETypes() []string { return []string{"text/plain"} }

// mockChunker emits one chunk per blank-line separated paragraph.
type mockChunker struct{}

func (mockChunker) Name() string { return "paragraph" }

func (mockChunker) Chunk(_ context.Context, documentID string, pages []domain.Page) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, page := range pages {
		for _, para := range strings.Split(page.Text, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			chunks = append(chunks, domain.Chunk{
				ID:         fmt.Sprintf("%s-%d", documentID, len(chunks)),
				DocumentID: documentID,
				Content:    para,
				Position:   len(chunks),
				Page:       page.Number,
			})
		}
	}
	return chunks, nil
}

// mockEmbeddingService maps texts to deterministic vectors and records calls.
type mockEmbeddingService struct {
	mu         sync.Mutex
	dims       int
	batchErr   error
	queryErr   error
	batchCalls int
	queryCalls int
	roles      []domain.EmbeddingRole
	queryVec   []float32
	delay      time.Duration
}

func newMockEmbedder() *mockEmbeddingService {
	return &mockEmbeddingService{dims: 3}
}

func (m *mockEmbeddingService) vector(text string) []float32 {
	v := make([]float32, m.dims)
	for i, r := range text {
		v[i%m.dims] += float32(r % 7)
	}
	v[0]++
	return v
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string, role domain.EmbeddingRole) ([][]float32, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	m.roles = append(m.roles, role)
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = m.vector(text)
	}
	return out, nil
}

func (m *mockEmbeddingService) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCalls++
	m.roles = append(m.roles, domain.EmbeddingRoleQuery)
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if m.queryVec != nil {
		return m.queryVec, nil
	}
	return m.vector(text), nil
}

func (m *mockEmbeddingService) calls() (batch, query int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchCalls, m.queryCalls
}

func (m *mockEmbeddingService) Dimensions() int              { return m.dims }
func (m *mockEmbeddingService) ModelName() string            { return "mock-embed" }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error                 { return nil }

// mockLLMService answers prompts with canned responses.
type mockLLMService struct {
	mu      sync.Mutex
	rewrite string
	answer  string
	errs    []error
	prompts []string
	options []driven.GenerateOptions
}

// Generate returns the rewrite response for rewrite prompts and the answer
// response otherwise. Queued errors are returned first, one per call.
func (m *mockLLMService) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	m.options = append(m.options, opts)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return "", err
		}
	}
	if strings.Contains(prompt, "Generate a concise search query") {
		return m.rewrite, nil
	}
	return m.answer, nil
}

func (m *mockLLMService) promptLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

func (m *mockLLMService) ModelName() string            { return "mock-llm" }
func (m *mockLLMService) Ping(_ context.Context) error { return nil }
func (m *mockLLMService) Close() error                 { return nil }

// countingNamespaceStore wraps the memory store to count and fail calls.
type countingNamespaceStore struct {
	*memory.NamespaceStore
	mu           sync.Mutex
	upserts      int
	queries      int
	upsertErr    error
	queryErr     error
	queryErrLeft int
}

func (s *countingNamespaceStore) Upsert(ctx context.Context, ns string, records []domain.IndexRecord) error {
	s.mu.Lock()
	s.upserts++
	err := s.upsertErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.NamespaceStore.Upsert(ctx, ns, records)
}

func (s *countingNamespaceStore) Query(ctx context.Context, ns string, vector []float32, topK int) ([]domain.RetrievalMatch, error) {
	s.mu.Lock()
	s.queries++
	if s.queryErr != nil && s.queryErrLeft != 0 {
		s.queryErrLeft--
		err := s.queryErr
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()
	return s.NamespaceStore.Query(ctx, ns, vector, topK)
}

// --- Fixture ---

const threeParagraphs = "Go was designed at Google in 2007.\n\n" +
	"Goroutines are lightweight threads managed by the runtime.\n\n" +
	"Channels let goroutines communicate safely."

// testSettings returns fast retry settings for tests.
func testSettings() domain.RAGSettings {
	s := domain.DefaultAppSettings().RAG
	s.Retry = domain.RetrySettings{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
	return s
}

type ragFixture struct {
	docs     *memory.DocumentStore
	chats    *memory.ChatStore
	store    *countingNamespaceStore
	source   *mockContentSource
	registry *mockExtractorRegistry
	embedder *mockEmbeddingService
	llm      *mockLLMService

	ingestion *IngestionService
	rag       *RAGService
	chat      *ChatService
}

func newRAGFixture(settings domain.RAGSettings) *ragFixture {
	f := &ragFixture{
		docs:     memory.NewDocumentStore(),
		chats:    memory.NewChatStore(),
		store:    &countingNamespaceStore{NamespaceStore: memory.NewNamespaceStore()},
		source:   &mockContentSource{data: map[string]string{"file:///go.txt": threeParagraphs}},
		registry: &mockExtractorRegistry{},
		embedder: newMockEmbedder(),
		llm:      &mockLLMService{rewrite: "goroutines threads", answer: "Goroutines are lightweight threads."},
	}
	_ = f.docs.SaveDocument(context.Background(), &domain.Document{
		ID: "doc-1", OwnerID: "user-1", ContentRef: "file:///go.txt", Title: "go.txt",
	})

	extraction := NewExtractionService(f.source, f.registry, mockChunker{}, settings)
	f.ingestion = NewIngestionService(f.docs, extraction, f.embedder, f.store, settings)
	rewriter := NewQueryRewriter(f.llm, settings)
	f.rag = NewRAGService(f.ingestion, rewriter, f.embedder, f.store, f.llm, f.chats, settings)
	f.chat = NewChatService(f.rag, f.chats, settings)
	return f
}
