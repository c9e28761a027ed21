package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// progressInterval is how often ingestion progress dots are printed.
var progressInterval = 500 * time.Millisecond

var ingestCmd = &cobra.Command{
	Use:   "ingest [doc-id]",
	Short: "Embed a document into its vector namespace",
	Long: `Fetches, parses, chunks, and embeds a document, then stores the vectors
in the document's own namespace. Documents that are already ingested are
left untouched, so running this twice is safe.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	return ingestDocument(cmd, args[0])
}

func ingestDocument(cmd *cobra.Command, documentID string) error {
	if ragService == nil {
		return errors.New("RAG service not configured")
	}

	cmd.Printf("Ingesting %s", documentID)
	result, err := ingestWithProgress(commandContext(cmd), cmd, documentID)
	cmd.Println()
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingUnavailable) {
			return fmt.Errorf("ingestion failed: %w (run 'docchat settings embedding')", err)
		}
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if result.AlreadyIngested {
		cmd.Printf("Document %s is already ingested.\n", documentID)
		return nil
	}
	cmd.Printf("Document %s ingested: %d records.\n", documentID, result.Records)
	return nil
}

// ingestWithProgress runs ingestion while printing a dot per tick.
func ingestWithProgress(ctx context.Context, cmd *cobra.Command, documentID string) (*domain.IngestResult, error) {
	type outcome struct {
		result *domain.IngestResult
		err    error
	}

	done := make(chan outcome, 1)
	go func() {
		result, err := ragService.EnsureIngested(ctx, documentID)
		done <- outcome{result, err}
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case o := <-done:
			return o.result, o.err
		case <-ticker.C:
			cmd.Print(".")
		}
	}
}
