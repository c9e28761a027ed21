package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/adapters/driving/mcp"
	"github.com/custodia-labs/docchat/internal/logger"
)

// promptWatcher is implemented by prompt stores that can follow edits
// made while the server runs.
type promptWatcher interface {
	Watch(ctx context.Context) error
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can ask
questions about registered documents.

By default, the server communicates over stdio using JSON-RPC. Use --port to
start a streamable HTTP server instead, which works with MCP Inspector.

The --user flag sets the default user for chat history; clients may pass
user_id per call to keep separate conversations.

Examples:
  # Stdio mode (default)
  docchat mcp serve

  # HTTP mode
  docchat mcp serve --port 8080

Desktop client configuration:
  {
    "mcpServers": {
      "docchat": {
        "command": "/path/to/docchat",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if ragService == nil {
		return errors.New("RAG service not configured")
	}

	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		RAG:         ragService,
		Chat:        chatService,
		Document:    documentService,
		DefaultUser: userID,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	if w, ok := promptAdmin.(promptWatcher); ok {
		go func() {
			if err := w.Watch(ctx); err != nil {
				logger.Warn("prompt edits need a restart: %v", err)
			}
		}()
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
