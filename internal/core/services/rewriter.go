package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure QueryRewriter implements the interface.
var _ driven.PromptStoreAware = (*QueryRewriter)(nil)

// Generation options for the rewrite call.
const (
	rewriteTemperature = 0.7
	rewriteMaxTokens   = 300
)

// defaultQueryRewritePrompt is the fallback prompt when no PromptStore is configured.
// The first %s receives the history, the second the question.
const defaultQueryRewritePrompt = `Based on this chat history:
%s

Generate a concise search query for: "%s"
Respond with only the query.`

// QueryRewriter turns a follow-up question into a standalone search query.
type QueryRewriter struct {
	llm         driven.LLMService
	promptStore driven.PromptStore
	policy      callPolicy
}

// NewQueryRewriter creates a new query rewriter.
func NewQueryRewriter(llm driven.LLMService, settings domain.RAGSettings) *QueryRewriter {
	return &QueryRewriter{
		llm:    llm,
		policy: callPolicy{retry: settings.Retry, timeout: settings.Timeouts.Generate},
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (r *QueryRewriter) SetPromptStore(store driven.PromptStore) {
	r.promptStore = store
}

// Rewrite returns a trimmed, non-empty search query for question.
// History is rendered in the order given, which callers keep newest first.
// A blank model response fails with domain.ErrQueryRewriteFailed.
func (r *QueryRewriter) Rewrite(ctx context.Context, history []domain.ChatTurn, question string) (string, error) {
	if r.llm == nil {
		return "", domain.ErrLLMUnavailable
	}

	prompt := fmt.Sprintf(loadPrompt(r.promptStore, driven.PromptQueryRewrite, defaultQueryRewritePrompt),
		renderHistory(history, ""), question)

	out, err := callWithRetry(ctx, r.policy, "rewrite", func(ctx context.Context) (string, error) {
		return r.llm.Generate(ctx, prompt, driven.GenerateOptions{
			MaxTokens:   rewriteMaxTokens,
			Temperature: rewriteTemperature,
		})
	})
	if err != nil {
		return "", domain.WrapProviderError(domain.ErrGenerationProvider, err)
	}

	query := cleanQuery(out)
	if query == "" {
		return "", domain.ErrQueryRewriteFailed
	}
	logger.Debug("Rewritten query: %q", query)
	return query, nil
}

// cleanQuery trims whitespace and a single pair of wrapping quotes.
func cleanQuery(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

// renderHistory writes one turn per line with the given prefix.
func renderHistory(history []domain.ChatTurn, prefix string) string {
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		lines = append(lines, prefix+turn.Message)
	}
	return strings.Join(lines, "\n")
}

// loadPrompt loads a prompt from the store, falling back to the default if
// unavailable or if the stored template does not have exactly the default's
// %s placeholders.
func loadPrompt(store driven.PromptStore, name, fallback string) string {
	if store == nil {
		return fallback
	}
	prompt, err := store.Load(name)
	if err != nil || prompt == "" {
		return fallback
	}
	got, ok := placeholders(prompt)
	if !ok {
		logger.Warn("prompt %q uses a format verb other than %%s; using default", name)
		return fallback
	}
	if want, _ := placeholders(fallback); got != want {
		logger.Warn("prompt %q has %d placeholders, expected %d; using default", name, got, want)
		return fallback
	}
	return prompt
}

// placeholders counts the %s verbs in a template, skipping %% escapes.
// ok is false when any other verb or a trailing % is present.
func placeholders(tmpl string) (n int, ok bool) {
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] != '%' {
			continue
		}
		i++
		if i == len(tmpl) {
			return n, false
		}
		switch tmpl[i] {
		case 's':
			n++
		case '%':
		default:
			return n, false
		}
	}
	return n, true
}

// DefaultPrompts returns the built-in prompt templates keyed by prompt name.
// File-backed prompt stores seed their directory with these.
func DefaultPrompts() map[string]string {
	return map[string]string{
		driven.PromptQueryRewrite: defaultQueryRewritePrompt,
		driven.PromptAnswer:       defaultAnswerPrompt,
	}
}
