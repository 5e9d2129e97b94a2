package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/libris/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server, exposing the knowledge base
to AI assistants.

The server offers search, ask, and ingest as tools, plus read-only
resources for collection statistics and the provider inventory. By
default it speaks JSON-RPC over stdio, which is what Claude Desktop
and similar clients expect; --port switches to a streamable HTTP
endpoint for MCP Inspector or remote access.

Examples:
  # Stdio mode (default, for Claude Desktop)
  libris mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  libris mcp serve --port 8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "libris": {
        "command": "/path/to/libris",
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
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	server, err := mcp.NewServer(&mcp.Ports{
		RAG:       ragService,
		Jobs:      jobService,
		Providers: providerService,
	})
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}
	return server.Run(cmd.Context())
}
