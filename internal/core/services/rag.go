package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure RAGService implements the interface.
var (
	_ driving.RAGService      = (*RAGService)(nil)
	_ driven.PromptStoreAware = (*RAGService)(nil)
)

// Answer texts for outcomes other than a generated answer.
const (
	MessageRewriteFailed    = "Sorry, I couldn't generate a valid search query."
	MessageEmbeddingFailed  = "Error creating search vector."
	MessageRetrievalFailed  = "Error retrieving documents."
	MessageNoMatches        = "No relevant documents found."
	MessageGenerationFailed = "Sorry, I couldn't generate a response."
	MessageEmptyQuestion    = "Please ask a question about the document."
	MessageUnreadable       = "This document could not be read, so it cannot be searched."
	MessageMisconfigured    = "The embedding model does not match the stored index for this document."
)

// defaultAnswerPrompt is the fallback prompt when no PromptStore is configured.
// Placeholders: history, excerpts, question.
const defaultAnswerPrompt = `You are an intelligent assistant.

Chat History:
%s

Document Excerpts:
%s

Question:
"%s"

Give a clear, helpful response using the above context. Do not repeat the question.`

// RAGService answers questions about a document from its retrieved passages.
type RAGService struct {
	ingestion   *IngestionService
	rewriter    *QueryRewriter
	embedder    driven.EmbeddingService
	store       driven.NamespaceStore
	llm         driven.LLMService
	chatStore   driven.ChatStore
	promptStore driven.PromptStore
	settings    domain.RAGSettings
}

// NewRAGService creates a new RAG service.
// The chat store is only needed by AnswerQuestion and may be nil otherwise.
func NewRAGService(
	ingestion *IngestionService,
	rewriter *QueryRewriter,
	embedder driven.EmbeddingService,
	store driven.NamespaceStore,
	llm driven.LLMService,
	chatStore driven.ChatStore,
	settings domain.RAGSettings,
) *RAGService {
	if settings.TopK <= 0 {
		settings.TopK = domain.DefaultTopK
	}
	if !settings.RewritePolicy.IsValid() {
		settings.RewritePolicy = domain.RewriteAlways
	}
	return &RAGService{
		ingestion: ingestion,
		rewriter:  rewriter,
		embedder:  embedder,
		store:     store,
		llm:       llm,
		chatStore: chatStore,
		settings:  settings,
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
// The store is shared with the query rewriter.
func (s *RAGService) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
	if s.rewriter != nil {
		s.rewriter.SetPromptStore(store)
	}
}

// EnsureIngested embeds and stores a document unless its namespace already exists.
func (s *RAGService) EnsureIngested(ctx context.Context, documentID string) (*domain.IngestResult, error) {
	return s.ingestion.EnsureIngested(ctx, documentID)
}

// AnswerQuestion loads the user's chat history and answers the question.
// The stored history must not yet contain the question.
func (s *RAGService) AnswerQuestion(ctx context.Context, userID, documentID, question string) (*domain.Answer, error) {
	var history []domain.ChatTurn
	if s.chatStore != nil {
		turns, err := s.chatStore.ListTurns(ctx, userID, documentID, s.settings.HistoryLimit)
		if err != nil {
			logger.Warn("Could not load chat history, continuing without it: %v", err)
		} else {
			history = domain.NewestFirst(turns)
		}
	}
	return s.Answer(ctx, documentID, history, question)
}

// Answer runs the full pipeline: ingest, rewrite, embed, retrieve, generate.
//
// Every outcome carries a readable Answer.Text. Normal short circuits
// (no search query, no matches) and provider failures return a nil error.
// Structural failures return the answer together with the error.
func (s *RAGService) Answer(
	ctx context.Context, documentID string, history []domain.ChatTurn, question string,
) (*domain.Answer, error) {
	logger.Section("Answer Question")
	logger.Debug("Document: %s, history: %d turns", documentID, len(history))

	if documentID == "" {
		return failed(MessageRetrievalFailed), fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return failed(MessageEmptyQuestion), fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	if s.settings.HistoryLimit > 0 && len(history) > s.settings.HistoryLimit {
		history = history[:s.settings.HistoryLimit]
	}

	// 1. INGEST (no-op when the namespace exists)
	if _, err := s.ingestion.EnsureIngested(ctx, documentID); err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedFormat):
			logger.Error("Document %s cannot be read: %v", documentID, err)
			return failed(MessageUnreadable), err
		case domain.IsFatal(err):
			logger.Error("Ingestion misconfigured: %v", err)
			return failed(MessageMisconfigured), err
		}
		// The namespace stays absent, so retrieval below finds nothing and
		// the next question retries ingestion.
		logger.Warn("Ingestion failed: %v", err)
	}

	// 2. REWRITE
	searchQuery, err := s.searchQuery(ctx, history, question)
	if err != nil {
		if errors.Is(err, domain.ErrQueryRewriteFailed) {
			logger.Info("Query rewrite produced no query")
			return &domain.Answer{Text: MessageRewriteFailed, Outcome: domain.AnswerOutcomeRewriteFailed}, nil
		}
		logger.Warn("Query rewrite failed: %v", err)
		return degraded(MessageRewriteFailed, ""), nil
	}

	// 3. EMBED QUERY (query role)
	if s.embedder == nil {
		return degraded(MessageEmbeddingFailed, searchQuery), nil
	}
	embedPolicy := callPolicy{retry: s.settings.Retry, timeout: s.settings.Timeouts.Embed}
	vector, err := callWithRetry(ctx, embedPolicy, "embed query", func(ctx context.Context) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, searchQuery)
	})
	if err == nil && len(vector) == 0 {
		err = errors.New("empty query vector")
	}
	if err != nil {
		logger.Warn("Query embedding failed: %v", domain.WrapProviderError(domain.ErrEmbeddingProvider, err))
		return degraded(MessageEmbeddingFailed, searchQuery), nil
	}

	// 4. RETRIEVE
	storePolicy := callPolicy{retry: s.settings.Retry, timeout: s.settings.Timeouts.Vector}
	matches, err := callWithRetry(ctx, storePolicy, "query", func(ctx context.Context) ([]domain.RetrievalMatch, error) {
		return s.store.Query(ctx, documentID, vector, s.settings.TopK)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDimensionMismatch) {
			logger.Error("Query vector does not fit namespace %s: %v", documentID, err)
			answer := failed(MessageMisconfigured)
			answer.SearchQuery = searchQuery
			return answer, err
		}
		logger.Warn("Retrieval failed: %v", domain.WrapProviderError(domain.ErrVectorStore, err))
		return degraded(MessageRetrievalFailed, searchQuery), nil
	}
	if len(matches) == 0 {
		logger.Info("No matches for %q", searchQuery)
		return &domain.Answer{Text: MessageNoMatches, Outcome: domain.AnswerOutcomeNoMatches, SearchQuery: searchQuery}, nil
	}
	logger.Debug("Retrieved %d matches, top score %.4f", len(matches), matches[0].Score)

	// 5. GENERATE
	if s.llm == nil {
		return degraded(MessageGenerationFailed, searchQuery), nil
	}
	prompt := s.answerPrompt(history, matches, question)
	genPolicy := callPolicy{retry: s.settings.Retry, timeout: s.settings.Timeouts.Generate}
	text, err := callWithRetry(ctx, genPolicy, "generate", func(ctx context.Context) (string, error) {
		return s.llm.Generate(ctx, prompt, driven.GenerateOptions{})
	})
	if err != nil {
		logger.Warn("Answer generation failed: %v", domain.WrapProviderError(domain.ErrGenerationProvider, err))
		answer := degraded(MessageGenerationFailed, searchQuery)
		answer.Matches = matches
		return answer, nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		answer := degraded(MessageGenerationFailed, searchQuery)
		answer.Matches = matches
		return answer, nil
	}

	return &domain.Answer{
		Text:        text,
		Outcome:     domain.AnswerOutcomeAnswered,
		SearchQuery: searchQuery,
		Matches:     matches,
	}, nil
}

// searchQuery applies the rewrite policy.
func (s *RAGService) searchQuery(ctx context.Context, history []domain.ChatTurn, question string) (string, error) {
	if s.settings.RewritePolicy == domain.RewriteWhenHistory && len(history) == 0 {
		logger.Debug("No history, using the question as search query")
		return question, nil
	}
	if s.rewriter == nil {
		return "", domain.ErrLLMUnavailable
	}
	return s.rewriter.Rewrite(ctx, history, question)
}

// answerPrompt assembles history, excerpts in descending score order and
// the original question.
func (s *RAGService) answerPrompt(history []domain.ChatTurn, matches []domain.RetrievalMatch, question string) string {
	excerpts := make([]string, len(matches))
	for i, m := range matches {
		text := m.Text
		if text == "" {
			text = "No content"
		}
		excerpts[i] = "- " + text
	}
	template := loadPrompt(s.promptStore, driven.PromptAnswer, defaultAnswerPrompt)
	return fmt.Sprintf(template, renderHistory(history, "- "), strings.Join(excerpts, "\n"), question)
}

func degraded(text, searchQuery string) *domain.Answer {
	return &domain.Answer{Text: text, Outcome: domain.AnswerOutcomeDegraded, SearchQuery: searchQuery}
}

func failed(text string) *domain.Answer {
	return &domain.Answer{Text: text, Outcome: domain.AnswerOutcomeFailed}
}
