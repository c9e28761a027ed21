package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, the vector store, and retrieval options.

Use subcommands to configure specific settings or run the interactive wizard.`,
	RunE: withSettings(runSettingsShow),
}

func init() {
	settingsCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show current settings",
			RunE:  withSettings(runSettingsShow),
		},
		&cobra.Command{
			Use:   "wizard",
			Short: "Interactive setup wizard",
			Long:  `Run an interactive wizard to configure providers and the vector store step by step.`,
			RunE:  withSettings(runSettingsWizard),
		},
		&cobra.Command{
			Use:   "embedding",
			Short: "Configure embedding provider",
			Long:  `Configure the provider that embeds document chunks and search queries.`,
			RunE:  withSettings(embeddingStep.runE),
		},
		&cobra.Command{
			Use:   "llm",
			Short: "Configure LLM provider",
			Long:  `Configure the provider that rewrites follow-up questions and writes answers.`,
			RunE:  withSettings(llmStep.runE),
		},
		&cobra.Command{
			Use:   "vectorstore",
			Short: "Configure vector store",
			Long: `Configure where document namespaces are stored.

Available stores:
  sqlite   - Local metadata database (default)
  memory   - Process memory, lost on exit
  pinecone - Pinecone index (requires index host and API key)`,
			RunE: withSettings(func(cmd *cobra.Command, _ []string) error {
				return configureVectorStore(cmd, bufio.NewReader(stdin))
			}),
		},
		&cobra.Command{
			Use:   "rewrite [always|when_history]",
			Short: "Set the query rewrite policy",
			Long: `Set when questions are rewritten into standalone search queries.

  always       - Rewrite every question, including the first one
  when_history - Rewrite only follow-up questions`,
			Args: cobra.ExactArgs(1),
			RunE: withSettings(runSettingsRewrite),
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check settings and ping providers",
			RunE:  withSettings(runSettingsValidate),
		},
	)
	rootCmd.AddCommand(settingsCmd)
}

// withSettings fails the command early when no settings service is wired.
func withSettings(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if settingsService == nil {
			return errors.New("settings service not configured")
		}
		return run(cmd, args)
	}
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	embeddingStep.print(cmd, settings.Embedding)
	llmStep.print(cmd, settings.LLM)

	vs := settings.VectorStore
	cmd.Println("[Vector Store]")
	cmd.Printf("  Provider: %s\n", vs.Provider)
	if vs.Provider == domain.VectorStorePinecone {
		cmd.Printf("  Host: %s\n", vs.Host)
		cmd.Printf("  API Key: %s\n", maskAPIKey(vs.APIKey))
	}
	cmd.Println()

	rag := settings.RAG
	history := "all turns"
	if rag.HistoryLimit > 0 {
		history = fmt.Sprintf("last %d turns", rag.HistoryLimit)
	}
	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K: %d\n", rag.TopK)
	cmd.Printf("  Rewrite: %s\n", rag.RewritePolicy)
	cmd.Printf("  History: %s\n", history)
	cmd.Printf("  Chunks: %d chars, %d overlap\n", settings.Chunker.Size, settings.Chunker.Overlap)
	cmd.Printf("  Retries: %d attempts\n", rag.Retry.MaxAttempts)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'docchat settings wizard' to fix configuration issues.")
		return nil
	}
	cmd.Println("Configuration is valid.")
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	cmd.Println("docchat Settings Wizard")
	cmd.Println("=======================")
	cmd.Println()

	reader := bufio.NewReader(stdin)
	steps := []struct {
		title string
		run   func(*cobra.Command, *bufio.Reader) error
	}{
		{"Embedding Provider", embeddingStep.configure},
		{"LLM Provider", llmStep.configure},
		{"Vector Store", configureVectorStore},
	}
	for i, step := range steps {
		heading := fmt.Sprintf("Step %d: %s", i+1, step.title)
		cmd.Println(heading)
		cmd.Println(strings.Repeat("-", len(heading)))
		if err := step.run(cmd, reader); err != nil {
			return err
		}
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		return nil
	}
	cmd.Println("All settings are valid and saved.")
	return nil
}

func runSettingsRewrite(cmd *cobra.Command, args []string) error {
	policy := domain.RewritePolicy(args[0])
	if err := settingsService.SetRewritePolicy(policy); err != nil {
		return fmt.Errorf("failed to set rewrite policy: %w", err)
	}
	cmd.Printf("Rewrite policy set to: %s\n", policy)
	return nil
}

func runSettingsValidate(cmd *cobra.Command, _ []string) error {
	if err := settingsService.Validate(); err != nil {
		return err
	}
	for _, step := range []providerStep{embeddingStep, llmStep} {
		cmd.Printf("%s provider... ", step.label)
		if err := step.validate(); err != nil {
			cmd.Println("FAILED")
			return fmt.Errorf("%s provider: %w", step.label, err)
		}
		cmd.Println("OK")
	}
	return nil
}

// providerStep is the interactive flow for one of the two AI providers.
type providerStep struct {
	label        string
	section      string
	providers    func() []domain.AIProvider
	defaultModel func(domain.AIProvider) string
	set          func(domain.AIProvider, string, string) error
	validate     func() error
	note         string
}

var (
	embeddingStep = providerStep{
		label:        "Embedding",
		section:      "[Embedding]",
		providers:    domain.AllEmbeddingProviders,
		defaultModel: domain.AIProvider.DefaultEmbeddingModel,
		set: func(p domain.AIProvider, model, key string) error {
			return settingsService.SetEmbeddingProvider(p, model, key)
		},
		validate: func() error { return settingsService.ValidateEmbeddingConfig() },
		note:     "Documents ingested with another model must be re-added; their vectors do not mix.",
	}
	llmStep = providerStep{
		label:        "LLM",
		section:      "[LLM]",
		providers:    domain.AllLLMProviders,
		defaultModel: domain.AIProvider.DefaultLLMModel,
		set: func(p domain.AIProvider, model, key string) error {
			return settingsService.SetLLMProvider(p, model, key)
		},
		validate: func() error { return settingsService.ValidateLLMConfig() },
	}
)

func (s providerStep) runE(cmd *cobra.Command, _ []string) error {
	return s.configure(cmd, bufio.NewReader(stdin))
}

func (s providerStep) print(cmd *cobra.Command, p domain.ProviderSettings) {
	cmd.Println(s.section)
	cmd.Printf("  Provider: %s\n", p.Provider.Description())
	cmd.Printf("  Model: %s\n", p.Model)
	if p.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", p.BaseURL)
	}
	if p.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", maskAPIKey(p.APIKey))
	}
	status := "configured"
	if !p.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()
}

// configure asks for a provider, a model and, for cloud providers, an
// API key, then saves and probes the result.
func (s providerStep) configure(cmd *cobra.Command, reader *bufio.Reader) error {
	providers := s.providers()
	cmd.Printf("Select %s Provider\n", s.label)
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	provider := providers[parseChoice(readLine(reader), len(providers), 1)-1]

	model := s.defaultModel(provider)
	cmd.Printf("Enter model name [%s]: ", model)
	if input := readLine(reader); input != "" {
		model = input
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key (empty to use the environment): ")
		apiKey = readPassword(reader)
		cmd.Println()
	}

	if err := s.set(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", s.label, err)
	}

	cmd.Print("Validating configuration... ")
	if err := s.validate(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", s.label, err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n", s.label, provider.Description(), model)
	if s.note != "" {
		cmd.Println(s.note)
	}
	cmd.Println()
	return nil
}

func configureVectorStore(cmd *cobra.Command, reader *bufio.Reader) error {
	stores := []domain.VectorStoreProvider{
		domain.VectorStoreSQLite,
		domain.VectorStoreMemory,
		domain.VectorStorePinecone,
	}

	cmd.Println("Select Vector Store")
	for i, s := range stores {
		cmd.Printf("  %d. %s\n", i+1, s)
	}
	cmd.Print("\nEnter choice [1]: ")
	provider := stores[parseChoice(readLine(reader), len(stores), 1)-1]

	var host, apiKey string
	if provider == domain.VectorStorePinecone {
		cmd.Print("Enter index host: ")
		host = readLine(reader)
		cmd.Print("Enter API key (empty to use the environment): ")
		apiKey = readPassword(reader)
		cmd.Println()
	}

	if err := settingsService.SetVectorStore(provider, host, apiKey); err != nil {
		return fmt.Errorf("failed to configure vector store: %w", err)
	}

	cmd.Printf("Vector store configured: %s\n\n", provider)
	return nil
}

func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n') //nolint:errcheck // EOF reads as an empty answer
	return strings.TrimSpace(input)
}

// parseChoice turns a 1-based menu answer into an index, falling back to
// defaultVal for anything out of range.
func parseChoice(input string, maxVal, defaultVal int) int {
	val, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads a secret without echo when stdin is a terminal,
// otherwise from the shared line reader.
func readPassword(reader *bufio.Reader) string {
	if isTerminal() {
		if password, err := term.ReadPassword(int(os.Stdin.Fd())); err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 8:
		return "****"
	default:
		return key[:4] + "..." + key[len(key)-4:]
	}
}
