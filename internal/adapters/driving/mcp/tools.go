package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// EnsureIngestedInput is the input schema for the ensure_ingested tool.
type EnsureIngestedInput struct {
	DocumentID string `json:"document_id" jsonschema:"the registered document to ingest"`
}

// EnsureIngestedOutput is the output schema for the ensure_ingested tool.
type EnsureIngestedOutput struct {
	DocumentID      string `json:"document_id"`
	AlreadyIngested bool   `json:"already_ingested"`
	Records         int    `json:"records"`
}

// AnswerQuestionInput is the input schema for the answer_question tool.
type AnswerQuestionInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document to ask about"`
	Question   string `json:"question" jsonschema:"the question to answer"`
	UserID     string `json:"user_id,omitempty" jsonschema:"whose chat history to use (default: the server user)"`
}

// AnswerQuestionOutput is the output schema for the answer_question tool.
type AnswerQuestionOutput struct {
	Answer      string         `json:"answer"`
	Outcome     string         `json:"outcome"`
	SearchQuery string         `json:"search_query,omitempty"`
	Sources     []SourceOutput `json:"sources,omitempty"`
}

// SourceOutput is one retrieved passage.
type SourceOutput struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

// ChatHistoryInput is the input schema for the chat_history tool.
type ChatHistoryInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document the conversation is about"`
	UserID     string `json:"user_id,omitempty" jsonschema:"whose history to read (default: the server user)"`
	Limit      int    `json:"limit,omitempty" jsonschema:"only the last N turns (default: all)"`
}

// ChatHistoryOutput is the output schema for the chat_history tool.
type ChatHistoryOutput struct {
	Turns []TurnOutput `json:"turns"`
	Count int          `json:"count"`
}

// TurnOutput is one chat turn, oldest first.
type TurnOutput struct {
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ensure_ingested",
		Description: "Embed a registered document into its vector namespace. A no-op when already ingested.",
	}, s.handleEnsureIngested)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "answer_question",
		Description: "Answer a question about a document using its content and the user's chat history",
	}, s.handleAnswerQuestion)

	if s.ports.Chat != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "chat_history",
			Description: "Read the conversation about a document, oldest turn first",
		}, s.handleChatHistory)
	}
}

func (s *Server) handleEnsureIngested(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input EnsureIngestedInput,
) (*mcp.CallToolResult, EnsureIngestedOutput, error) {
	if strings.TrimSpace(input.DocumentID) == "" {
		return nil, EnsureIngestedOutput{}, errors.New("document_id is required")
	}

	result, err := s.ports.RAG.EnsureIngested(ctx, input.DocumentID)
	if err != nil {
		return nil, EnsureIngestedOutput{}, fmt.Errorf("ingesting %s: %w", input.DocumentID, err)
	}

	return nil, EnsureIngestedOutput{
		DocumentID:      result.DocumentID,
		AlreadyIngested: result.AlreadyIngested,
		Records:         result.Records,
	}, nil
}

// handleAnswerQuestion answers through the chat service when one is
// configured, so the turn pair is recorded; otherwise the history is read
// but not extended.
func (s *Server) handleAnswerQuestion(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnswerQuestionInput,
) (*mcp.CallToolResult, AnswerQuestionOutput, error) {
	if strings.TrimSpace(input.DocumentID) == "" {
		return nil, AnswerQuestionOutput{}, errors.New("document_id is required")
	}

	userID := s.ports.user(input.UserID)

	var (
		answer *domain.Answer
		err    error
	)
	if s.ports.Chat != nil {
		answer, err = s.ports.Chat.Ask(ctx, userID, input.DocumentID, input.Question)
	} else {
		answer, err = s.ports.RAG.AnswerQuestion(ctx, userID, input.DocumentID, input.Question)
	}
	if err != nil {
		if answer != nil {
			return nil, AnswerQuestionOutput{}, fmt.Errorf("%s: %w", answer.Text, err)
		}
		return nil, AnswerQuestionOutput{}, err
	}

	output := AnswerQuestionOutput{
		Answer:      answer.Text,
		Outcome:     answer.Outcome.String(),
		SearchQuery: answer.SearchQuery,
	}
	for i := range answer.Matches {
		output.Sources = append(output.Sources, SourceOutput{
			ID:    answer.Matches[i].ID,
			Score: answer.Matches[i].Score,
			Text:  answer.Matches[i].Text,
		})
	}

	return nil, output, nil
}

func (s *Server) handleChatHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChatHistoryInput,
) (*mcp.CallToolResult, ChatHistoryOutput, error) {
	if strings.TrimSpace(input.DocumentID) == "" {
		return nil, ChatHistoryOutput{}, errors.New("document_id is required")
	}

	turns, err := s.ports.Chat.History(ctx, s.ports.user(input.UserID), input.DocumentID, input.Limit)
	if err != nil {
		return nil, ChatHistoryOutput{}, fmt.Errorf("reading history: %w", err)
	}

	output := ChatHistoryOutput{
		Turns: make([]TurnOutput, len(turns)),
		Count: len(turns),
	}
	for i := range turns {
		output.Turns[i] = TurnOutput{
			Role:      turns[i].Role.String(),
			Message:   turns[i].Message,
			CreatedAt: turns[i].CreatedAt,
		}
	}

	return nil, output, nil
}
