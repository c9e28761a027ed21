// Command docchat answers questions about a single document at a time.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/docchat/internal/adapters/driven/ai"
	"github.com/custodia-labs/docchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docchat/internal/adapters/driven/content"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/pinecone"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docchat/internal/adapters/driving/cli"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/services"
	"github.com/custodia-labs/docchat/internal/extractors"
	"github.com/custodia-labs/docchat/internal/logger"
	"github.com/custodia-labs/docchat/internal/postprocessors"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger.SetVerbose(cli.IsVerboseArgs(os.Args[1:]))

	configStore, err := file.NewConfigStore("")
	if err != nil {
		return err
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	home, err := file.HomeDir()
	if err != nil {
		return err
	}
	db, err := sqlite.NewStore(filepath.Join(home, "data"))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	vectors, err := namespaceStore(settings, db)
	if err != nil {
		return err
	}

	aiServices := ai.Initialise(settings)
	defer aiServices.Close()
	for _, w := range aiServices.Warnings {
		logger.Warn("%s", w)
	}

	chunker, err := postprocessors.NewChunker(settings.Chunker)
	if err != nil {
		return fmt.Errorf("building chunker: %w", err)
	}
	source := content.NewRouter(
		content.NewFileSource(0),
		content.NewHTTPSource(content.HTTPConfig{}),
	)

	docStore := db.DocumentStore()
	chatStore := db.ChatStore()

	extraction := services.NewExtractionService(source, extractors.NewDefaultRegistry(), chunker, settings.RAG)
	ingestion := services.NewIngestionService(docStore, extraction, aiServices.EmbeddingService, vectors, settings.RAG)
	rewriter := services.NewQueryRewriter(aiServices.LLMService, settings.RAG)
	rag := services.NewRAGService(ingestion, rewriter, aiServices.EmbeddingService, vectors,
		aiServices.LLMService, chatStore, settings.RAG)

	prompts, err := file.NewPromptStore("", services.DefaultPrompts())
	if err != nil {
		return fmt.Errorf("opening prompts: %w", err)
	}
	rag.SetPromptStore(prompts)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Document: services.NewDocumentService(docStore, vectors),
		RAG:      rag,
		Chat:     services.NewChatService(rag, chatStore, settings.RAG),
		Settings: settingsService,
		Prompts:  prompts,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.Execute(ctx)
}

// namespaceStore picks the vector backend. Documents and chat history
// always live in SQLite.
func namespaceStore(settings *domain.AppSettings, db *sqlite.Store) (driven.NamespaceStore, error) {
	switch settings.VectorStore.Provider {
	case domain.VectorStoreMemory:
		logger.Debug("using in-memory vector store")
		return memory.NewNamespaceStore(), nil
	case domain.VectorStorePinecone:
		store, err := pinecone.NewStore(pinecone.Config{
			Host:    settings.VectorStore.Host,
			APIKey:  settings.VectorStore.APIKey,
			Timeout: settings.RAG.Timeouts.Vector,
		})
		if err != nil {
			return nil, fmt.Errorf("configuring pinecone: %w", err)
		}
		return store, nil
	default:
		return db.NamespaceStore(), nil
	}
}
