package cli

import (
	"context"
	"io"
	"os"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// EnvUser overrides the user whose chat history commands read and write.
const EnvUser = "DOCCHAT_USER"

// version is set at build time via SetVersion.
var version = "dev"

// Persistent flags.
var (
	verbose bool
	userID  string
)

// Services wired by main before Execute.
var (
	documentService driving.DocumentService
	ragService      driving.RAGService
	chatService     driving.ChatService
	settingsService driving.SettingsService
	promptAdmin     PromptAdmin
)

// Terminal I/O, swapped out in tests.
var (
	stdin      io.Reader = os.Stdin
	isTerminal           = func() bool { return isTerminalFile(os.Stdin) }
)

// PromptAdmin manages the editable prompt files.
type PromptAdmin interface {
	Dir() string
	Path(name string) string
	Reset(name string) error
}

// Services holds the driving ports the commands call.
type Services struct {
	Document driving.DocumentService
	RAG      driving.RAGService
	Chat     driving.ChatService
	Settings driving.SettingsService
	Prompts  PromptAdmin
}

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Chat with your documents",
	Long: `docchat answers questions about a single document.

A document is registered once with 'docchat document add', embedded into its
own vector namespace on first use, and then queried with 'docchat ask'.
Follow-up questions are rewritten into standalone search queries using the
chat history of the current user.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline debug output to stderr")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", defaultUserID(), "user whose chat history is used")
}

// SetServices installs the services used by commands.
func SetServices(s Services) {
	documentService = s.Document
	ragService = s.RAG
	chatService = s.Chat
	settingsService = s.Settings
	promptAdmin = s.Prompts
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// IsVerboseArgs reports whether args request verbose output. main needs
// this before cobra parses flags so provider warnings are not lost.
func IsVerboseArgs(args []string) bool {
	for _, a := range args {
		if a == "--" {
			return false
		}
		if a == "-v" || a == "--verbose" || a == "--verbose=true" {
			return true
		}
	}
	return false
}

func defaultUserID() string {
	if id := os.Getenv(EnvUser); id != "" {
		return id
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "local"
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute (as in tests calling run funcs directly).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
