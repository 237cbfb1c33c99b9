package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

var (
	statsJSON    bool
	statsRecords bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Long: `Reports how many chunks the ledger records and how many vectors are stored.

With --records, also lists every ledger entry in the namespace.`,
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	statsCmd.Flags().BoolVar(&statsRecords, "records", false, "list ledger records")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if statsService == nil {
		return notConfigured("stats")
	}

	stats, err := statsService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	var records []domain.IndexRecord
	if statsRecords {
		if records, err = statsService.Records(cmd.Context()); err != nil {
			return fmt.Errorf("failed to list records: %w", err)
		}
	}

	if statsJSON {
		var payload any = stats
		if statsRecords {
			if records == nil {
				records = []domain.IndexRecord{}
			}
			payload = struct {
				*driving.Stats
				Records []domain.IndexRecord `json:"records"`
			}{stats, records}
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Namespace:      %s\n", stats.Namespace)
	cmd.Printf("Ledger records: %d\n", stats.LedgerRecords)
	cmd.Printf("Vectors:        %d\n", stats.Vectors)
	if stats.LedgerRecords != stats.Vectors {
		cmd.Println("Note: ledger and vector store differ; a partial write may have been rolled back.")
	}

	if statsRecords {
		cmd.Println()
		if len(records) == 0 {
			cmd.Println("No records.")
		}
		for _, r := range records {
			cmd.Printf("%s  %s\n", r.Key, r.UpdatedAt.Format(time.RFC3339))
		}
	}
	return nil
}
