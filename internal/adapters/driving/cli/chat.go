package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui"
)

// errNoTerminal is returned when chat is started without a terminal.
var errNoTerminal = errors.New("chat needs an interactive terminal; use 'paperchat query' instead")

// isTerminal reports whether stdout is a terminal. Replaced in tests.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with your documents in the terminal",
	Long: `Opens an interactive chat. Each question is answered from the indexed
documents and the answer lists the sources it drew on.

Controls:
  Enter    - Ask
  Tab      - Show the passages behind the last answer
  ↑/↓      - Previous questions, or move through passages
  PgUp/Dn  - Scroll the conversation
  Esc      - Back to the question
  Ctrl+L   - Clear
  Ctrl+C   - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if queryService == nil {
		return notConfigured("query")
	}
	if !isTerminal() {
		return errNoTerminal
	}

	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in chat: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	app, err := tui.NewApp(tui.NewPorts(queryService, statsService))
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	app.WithContext(cmd.Context()).WithQueryTimeout(serverSettings.QueryTimeout)

	if err := app.Run(); err != nil {
		return fmt.Errorf("chat error: %w", err)
	}
	return nil
}
