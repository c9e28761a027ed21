package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

const timeFormat = "2006-01-02 15:04:05"

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage registered documents",
	Long:  `Register, list, inspect, or remove the documents you can chat with.`,
}

var documentAddCmd = &cobra.Command{
	Use:   "add [path|url]",
	Short: "Register a document",
	Long: `Registers a document by local path, file:// URL, or http(s) URL.
The content is fetched and embedded the first time it is used.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentAdd,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentShowCmd = &cobra.Command{
	Use:   "show [doc-id]",
	Short: "Show document info and ingestion state",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentShow,
}

var documentRemoveCmd = &cobra.Command{
	Use:   "remove [doc-id]",
	Short: "Remove a document from the registry",
	Long:  `Removes the registry entry. The document's vector namespace is kept.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentRemove,
}

// Flags for document subcommands.
var (
	addTitle    string
	addMIMEType string
	addIngest   bool
	listAll     bool
)

func init() {
	documentAddCmd.Flags().StringVarP(&addTitle, "title", "t", "", "document title (default: derived from the reference)")
	documentAddCmd.Flags().StringVar(&addMIMEType, "mime", "", "MIME type (default: guessed from the extension)")
	documentAddCmd.Flags().BoolVar(&addIngest, "ingest", false, "embed the document immediately")
	documentListCmd.Flags().BoolVarP(&listAll, "all", "a", false, "list documents of every user")

	documentCmd.AddCommand(documentAddCmd)
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentShowCmd)
	documentCmd.AddCommand(documentRemoveCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentAdd(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx := commandContext(cmd)
	doc, err := documentService.Add(ctx, userID, args[0], addTitle, addMIMEType)
	if err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}

	cmd.Printf("Added document %s\n", doc.ID)
	cmd.Printf("  Title: %s\n", doc.Title)
	if doc.MIMEType != "" {
		cmd.Printf("  Type:  %s\n", doc.MIMEType)
	}

	if addIngest {
		return ingestDocument(cmd, doc.ID)
	}
	return nil
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	owner := userID
	if listAll {
		owner = ""
	}

	docs, err := documentService.List(commandContext(cmd), owner)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found. Add one with 'docchat document add <path|url>'.")
		return nil
	}

	for i := range docs {
		cmd.Printf("  %s  %s\n", docs[i].ID, docs[i].Title)
		if listAll {
			cmd.Printf("    Owner: %s\n", docs[i].OwnerID)
		}
	}
	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

func runDocumentShow(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	details, err := documentService.GetDetails(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	doc := details.Document
	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Title:    %s\n", doc.Title)
	cmd.Printf("  Owner:    %s\n", doc.OwnerID)
	cmd.Printf("  Source:   %s\n", doc.ContentRef)
	if doc.MIMEType != "" {
		cmd.Printf("  Type:     %s\n", doc.MIMEType)
	}
	cmd.Printf("  Created:  %s\n", doc.CreatedAt.Format(timeFormat))
	cmd.Printf("  State:    %s\n", details.State)

	if ns := details.Namespace; ns != nil {
		cmd.Println("\n  Namespace:")
		cmd.Printf("    Records:     %d\n", ns.Records)
		cmd.Printf("    Dimensions:  %d\n", ns.Dimensions)
		cmd.Printf("    Fingerprint: %s\n", ns.Fingerprint)
		if !ns.CompletedAt.IsZero() {
			cmd.Printf("    Completed:   %s\n", ns.CompletedAt.Format(timeFormat))
		}
	}

	return nil
}

func runDocumentRemove(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	if err := documentService.Remove(commandContext(cmd), args[0]); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("document %s not found", args[0])
		}
		return fmt.Errorf("failed to remove document: %w", err)
	}

	cmd.Printf("Document %s removed.\n", args[0])
	return nil
}
