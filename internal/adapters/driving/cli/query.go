package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

var queryJSON bool

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question about indexed documents",
	Long: `Retrieves the passages most similar to the question and asks the LLM to
answer from them. The answer lists the source documents it was drawn from.

Requires an LLM provider; see 'paperchat settings'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

var (
	retrieveJSON  bool
	retrieveWidth int
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [question]",
	Short: "Show the passages retrieved for a question",
	Long: `Runs retrieval only, without an LLM answer. Useful for checking what
evidence a question would be answered from.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

func init() {
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the answer as JSON")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output passages as JSON")
	retrieveCmd.Flags().IntVarP(&retrieveWidth, "width", "w", 200, "maximum characters of each passage to show")
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(retrieveCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return notConfigured("query")
	}

	ctx, cancel := queryContext(cmd)
	defer cancel()

	answer, err := queryService.Query(ctx, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printAnswer(cmd, answer)
	return nil
}

func printAnswer(cmd *cobra.Command, answer *domain.Answer) {
	cmd.Println(answer.Response)
	if len(answer.Citations) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, c := range answer.Citations {
			if c.Domain != "" {
				cmd.Printf("  - %s (%s)\n", c.Source, c.Domain)
			} else {
				cmd.Printf("  - %s\n", c.Source)
			}
		}
	}
	if len(answer.References) > 0 {
		cmd.Println()
		cmd.Println("Pages:")
		for _, r := range answer.References {
			cmd.Printf("  - %s\n", r)
		}
	}
}

// retrievedLine is the JSON shape of one retrieved passage.
type retrievedLine struct {
	ID       string          `json:"id"`
	Content  string          `json:"content"`
	Metadata domain.Metadata `json:"metadata"`
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return notConfigured("query")
	}

	ctx, cancel := queryContext(cmd)
	defer cancel()

	evidence, err := queryService.Retrieve(ctx, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("retrieve failed: %w", err)
	}

	if retrieveJSON {
		lines := make([]retrievedLine, 0, len(evidence.Docs))
		for _, d := range evidence.Docs {
			lines = append(lines, retrievedLine(d))
		}
		data, err := json.MarshalIndent(map[string]any{
			"queries": evidence.Queries,
			"docs":    lines,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal passages: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(evidence.Docs) == 0 {
		cmd.Println("No passages found.")
		return nil
	}
	if len(evidence.Queries) > 1 {
		cmd.Println("Queries:")
		for _, q := range evidence.Queries {
			cmd.Printf("  - %s\n", q)
		}
		cmd.Println()
	}
	for _, d := range evidence.Docs {
		cmd.Printf("[%s] %s\n", d.ID, describeDoc(d))
		cmd.Printf("    %s\n\n", truncate(oneLine(d.Content), retrieveWidth))
	}
	return nil
}

// queryContext bounds a query by the configured timeout.
func queryContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if serverSettings.QueryTimeout > 0 {
		return context.WithTimeout(ctx, serverSettings.QueryTimeout)
	}
	return context.WithCancel(ctx)
}

// describeDoc renders "source, page N, domain" for a passage.
func describeDoc(d domain.RetrievedDoc) string {
	parts := []string{d.Metadata.Source()}
	if page, ok := d.Metadata.Page(); ok {
		parts = append(parts, fmt.Sprintf("page %d", page))
	}
	if dom := d.Metadata.Domain(); dom != "" {
		parts = append(parts, dom)
	}
	return strings.Join(parts, ", ")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if n <= 0 || len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
