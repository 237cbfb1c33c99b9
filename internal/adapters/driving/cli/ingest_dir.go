package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

var ingestDirJSON bool

var ingestDirCmd = &cobra.Command{
	Use:   "ingest-dir [root]",
	Short: "Index a directory tree of PDFs",
	Long: `Indexes every PDF below root. Each top-level sub-directory names the
subject domain of the documents inside it, and a .bib file sharing a PDF's
name supplies its bibliographic fields.

Documents are processed concurrently; one failure does not stop the others.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngestDir,
}

func init() {
	ingestDirCmd.Flags().BoolVar(&ingestDirJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(ingestDirCmd)
}

// bulkLine is the JSON shape of one bulk result.
type bulkLine struct {
	Path   string               `json:"path"`
	Domain string               `json:"domain,omitempty"`
	Result *domain.IngestResult `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

func runIngestDir(cmd *cobra.Command, args []string) error {
	if bulkService == nil {
		return notConfigured("bulk ingestion")
	}

	results, err := bulkService.IngestDir(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("ingest directory: %w", err)
	}
	summary := domain.SummariseBulk(results)

	if ingestDirJSON {
		lines := make([]bulkLine, 0, len(results))
		for _, r := range results {
			line := bulkLine{Path: r.Item.Path, Domain: r.Item.Domain, Result: r.Result}
			if r.Err != nil {
				line.Error = r.Err.Error()
			}
			lines = append(lines, line)
		}
		data, err := json.MarshalIndent(map[string]any{
			"results": lines,
			"summary": summary,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(results) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	for _, r := range results {
		name := filepath.Base(r.Item.Path)
		if r.Item.Domain != "" {
			name = r.Item.Domain + "/" + name
		}
		switch {
		case r.Err != nil:
			cmd.Printf("  FAIL  %s: %v\n", name, r.Err)
		case r.Result.IsDuplicate:
			cmd.Printf("  DUP   %s\n", name)
		default:
			cmd.Printf("  OK    %s (%d chunks)\n", name, r.Result.ChunksWritten)
		}
	}
	cmd.Println()
	cmd.Printf("Uploaded: %d, duplicates: %d, failed: %d\n", summary.Uploaded, summary.Duplicates, summary.Failed)
	return nil
}
