package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

var (
	ingestDomain string
	ingestBib    string
	ingestJSON   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Index PDF documents",
	Long: `Extracts, chunks and embeds each file and adds it to the vector store.

Content that is already indexed is skipped. A document whose every chunk is
already known is reported as a duplicate and nothing is written.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestDomain, "domain", "d", "", "subject domain attached to every chunk")
	ingestCmd.Flags().StringVar(&ingestBib, "bib", "", "BibTeX file with bibliographic fields")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return notConfigured("ingestion")
	}

	opts := driving.IngestOptions{Domain: ingestDomain}
	if ingestBib != "" {
		data, err := os.ReadFile(ingestBib)
		if err != nil {
			return fmt.Errorf("read bibliography: %w", err)
		}
		opts.Bibliography = data
	}

	results := make([]*domain.IngestResult, 0, len(args))
	var failed int
	for _, path := range args {
		res, err := ingestService.IngestFile(cmd.Context(), path, opts)
		if err != nil {
			failed++
			cmd.PrintErrf("%s: %v\n", path, err)
			continue
		}
		results = append(results, res)
		if !ingestJSON {
			printIngestResult(cmd, res)
		}
	}

	if ingestJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(args))
	}
	return nil
}

func printIngestResult(cmd *cobra.Command, res *domain.IngestResult) {
	cmd.Printf("%s: %s\n", res.Source, res.Message)
	cmd.Printf("  added %d, skipped %d, chunks written %d of %d\n",
		res.Index.NumAdded, res.Index.NumSkipped, res.ChunksWritten, res.ChunksTotal)
}
