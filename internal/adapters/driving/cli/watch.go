package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/paperchat/internal/adapters/driving/watch"
	"github.com/custodia-labs/paperchat/internal/core/domain"
)

var (
	watchInitial  bool
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [root]",
	Short: "Index PDFs as they are added to a directory",
	Long: `Watches root and every directory below it. A PDF that is created or
rewritten is indexed once it has been quiet for the debounce period, using
the same domain and bibliography rules as ingest-dir.

Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchInitial, "initial", false, "index existing documents before watching")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before a file is indexed")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if bulkService == nil {
		return notConfigured("bulk ingestion")
	}
	root := args[0]

	if watchInitial {
		results, err := bulkService.IngestDir(cmd.Context(), root)
		if err != nil {
			return fmt.Errorf("initial ingest: %w", err)
		}
		summary := domain.SummariseBulk(results)
		cmd.Printf("Initial: uploaded %d, duplicates %d, failed %d\n",
			summary.Uploaded, summary.Duplicates, summary.Failed)
	}

	cmd.Printf("Watching %s (press Ctrl+C to stop)\n", root)
	w := watch.New(root, bulkService, watch.WithDebounce(watchDebounce))
	return w.Run(cmd.Context(), func(r domain.BulkResult) {
		name := filepath.Base(r.Item.Path)
		switch {
		case r.Err != nil:
			cmd.PrintErrf("%s: %v\n", name, r.Err)
		case r.Result.IsDuplicate:
			cmd.Printf("%s: %s\n", name, domain.MessageDuplicate)
		default:
			cmd.Printf("%s: indexed %d chunks\n", name, r.Result.ChunksWritten)
		}
	})
}
