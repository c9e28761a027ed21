package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [doc-id]",
	Short: "Show your chat history for a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "show only the last N turns (0 = all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	turns, err := chatService.History(commandContext(cmd), userID, args[0], historyLimit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if len(turns) == 0 {
		cmd.Printf("No chat history for %s.\n", args[0])
		return nil
	}

	for i := range turns {
		cmd.Printf("[%s] %s:\n", turns[i].CreatedAt.Format(timeFormat), turns[i].Role)
		cmd.Printf("  %s\n\n", turns[i].Message)
	}
	return nil
}
