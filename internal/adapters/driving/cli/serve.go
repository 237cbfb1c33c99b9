package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/paperchat/internal/adapters/driving/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serve ingestion and question answering over HTTP.

Routes:
  POST /upload     multipart form: file, optional bib_file and domain
  POST /query      {"query": "..."} -> {"response", "citations", "references"}
  GET  /retrieve   ?q=... -> retrieved passages
  GET  /health     liveness and index sizes

Errors are returned as {"error": "..."}.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (default from server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return notConfigured("ingestion")
	}
	if queryService == nil {
		return notConfigured("query")
	}

	server, err := httpapi.NewServer(httpapi.Ports{
		Ingest: ingestService,
		Query:  queryService,
		Stats:  statsService,
	}, serverSettings.QueryTimeout)
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = serverSettings.Addr
	}
	cmd.Printf("Listening on http://%s\n", addr)
	return server.Run(cmd.Context(), addr)
}
