package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// Flags for the ask command.
var (
	askJSON    bool
	askSources bool
)

// maxQuestionBytes caps a question read from piped stdin.
const maxQuestionBytes = 64 << 10

var askCmd = &cobra.Command{
	Use:   "ask [doc-id] [question...]",
	Short: "Ask a question about a document",
	Long: `Answers a question using the document's content and your chat history.

The document is ingested on first use. Without a question argument the
question is read from stdin when it is piped, or an interactive session is
started when stdin is a terminal (empty line or 'exit' to quit).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.Flags().BoolVarP(&askSources, "sources", "s", false, "show the retrieved passages")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	documentID := args[0]
	question := strings.TrimSpace(strings.Join(args[1:], " "))

	if question == "" {
		if isTerminal() {
			return askInteractive(cmd, documentID)
		}
		data, err := io.ReadAll(io.LimitReader(stdin, maxQuestionBytes))
		if err != nil {
			return fmt.Errorf("failed to read question: %w", err)
		}
		question = strings.TrimSpace(string(data))
		if question == "" {
			return errors.New("no question given")
		}
	}

	return askOnce(cmd, documentID, question)
}

func askOnce(cmd *cobra.Command, documentID, question string) error {
	answer, err := chatService.Ask(commandContext(cmd), userID, documentID, question)
	if answer != nil {
		if askJSON {
			if jsonErr := outputAnswerJSON(cmd, answer); jsonErr != nil {
				return jsonErr
			}
		} else {
			outputAnswerText(cmd, answer)
		}
	}
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}
	return nil
}

// askInteractive reads one question per line until EOF, an empty line or exit.
func askInteractive(cmd *cobra.Command, documentID string) error {
	cmd.Printf("Chatting with %s. Empty line or 'exit' to quit.\n", documentID)
	scanner := bufio.NewScanner(stdin)
	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			cmd.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == "exit" || line == "quit" {
			return nil
		}
		if err := askOnce(cmd, documentID, line); err != nil {
			return err
		}
		cmd.Println()
	}
}

type answerJSON struct {
	Answer      string       `json:"answer"`
	Outcome     string       `json:"outcome"`
	SearchQuery string       `json:"search_query,omitempty"`
	Sources     []sourceJSON `json:"sources,omitempty"`
}

type sourceJSON struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

func outputAnswerJSON(cmd *cobra.Command, answer *domain.Answer) error {
	out := answerJSON{
		Answer:      answer.Text,
		Outcome:     answer.Outcome.String(),
		SearchQuery: answer.SearchQuery,
	}
	for i := range answer.Matches {
		out.Sources = append(out.Sources, sourceJSON{
			ID:    answer.Matches[i].ID,
			Score: answer.Matches[i].Score,
			Text:  answer.Matches[i].Text,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswerText(cmd *cobra.Command, answer *domain.Answer) {
	cmd.Println(answer.Text)

	if !askSources || len(answer.Matches) == 0 {
		return
	}
	cmd.Println()
	if answer.SearchQuery != "" {
		cmd.Printf("Search query: %s\n", answer.SearchQuery)
	}
	cmd.Println("Sources:")
	for i := range answer.Matches {
		m := answer.Matches[i]
		cmd.Printf("  [%d] (%.2f) %s\n", i+1, m.Score, snippet(m.Text, 160))
	}
}

// snippet shortens text to at most n runes on one line.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

func isTerminalFile(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
