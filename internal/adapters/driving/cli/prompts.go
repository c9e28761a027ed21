package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/services"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Show the editable prompt templates",
	Long: `Lists the prompt template files used for query rewriting and answer
synthesis. Edit a file to change the prompt; delete it or run
'docchat prompts reset <name>' to restore the default.`,
	RunE: runPromptsList,
}

var promptsResetCmd = &cobra.Command{
	Use:   "reset [name]",
	Short: "Restore a prompt template to its default",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromptsReset,
}

func init() {
	promptsCmd.AddCommand(promptsResetCmd)
	rootCmd.AddCommand(promptsCmd)
}

func runPromptsList(cmd *cobra.Command, _ []string) error {
	if promptAdmin == nil {
		return errors.New("prompt store not configured")
	}

	names := make([]string, 0, len(services.DefaultPrompts()))
	for name := range services.DefaultPrompts() {
		names = append(names, name)
	}
	sort.Strings(names)

	cmd.Printf("Prompt directory: %s\n\n", promptAdmin.Dir())
	for _, name := range names {
		cmd.Printf("  %-14s %s\n", name, promptAdmin.Path(name))
	}
	return nil
}

func runPromptsReset(cmd *cobra.Command, args []string) error {
	if promptAdmin == nil {
		return errors.New("prompt store not configured")
	}

	if err := promptAdmin.Reset(args[0]); err != nil {
		return fmt.Errorf("failed to reset prompt: %w", err)
	}
	cmd.Printf("Prompt %s restored to default.\n", args[0])
	return nil
}
