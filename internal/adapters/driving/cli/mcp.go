package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/paperchat/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes the tools ingest_pdf, query and retrieve, plus the
paperchat://stats resource. By default it communicates over stdio using
JSON-RPC and can be used with any MCP-compatible AI assistant.

Use --port to start an HTTP server instead, which enables:
  - Testing with MCP Inspector web UI
  - Remote access via HTTP

Examples:
  # Stdio mode (default, for desktop assistants)
  paperchat mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  paperchat mcp serve --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "paperchat": {
        "command": "/path/to/paperchat",
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

	if queryService == nil {
		return notConfigured("query")
	}
	if ingestService == nil {
		return notConfigured("ingestion")
	}

	ports := &mcp.Ports{
		Ingest: ingestService,
		Query:  queryService,
		Stats:  statsService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf("127.0.0.1:%d", port)
		cmd.Printf("MCP server listening on http://%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
