// Package cli provides the cobra command tree for paperchat.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
	"github.com/custodia-labs/paperchat/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

var (
	ingestService   driving.IngestionService
	bulkService     driving.BulkIngestionService
	queryService    driving.QueryService
	statsService    driving.StatsService
	settingsService driving.SettingsService
	serverSettings  = domain.DefaultAppSettings().Server

	// startupErr explains why the core services are missing, if they are.
	startupErr error
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "paperchat",
	Short: "Chat with your PDFs",
	Long: `paperchat indexes PDF documents into a local vector store and answers
questions about them with citations back to the source files.

Documents are split into chunks, embedded and recorded in a ledger so the
same content is never indexed twice.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Services holds the driving ports used by the commands.
type Services struct {
	Ingest   driving.IngestionService
	Bulk     driving.BulkIngestionService
	Query    driving.QueryService
	Stats    driving.StatsService
	Settings driving.SettingsService
	Server   domain.ServerSettings
}

// SetServices installs the services used by the commands.
func SetServices(s Services) {
	ingestService = s.Ingest
	bulkService = s.Bulk
	queryService = s.Query
	statsService = s.Stats
	settingsService = s.Settings
	if s.Server.Addr != "" {
		serverSettings.Addr = s.Server.Addr
	}
	if s.Server.QueryTimeout > 0 {
		serverSettings.QueryTimeout = s.Server.QueryTimeout
	}
}

// SetStartupError records why the core services could not be built.
// Commands that need them report it; settings commands still work.
func SetStartupError(err error) {
	startupErr = err
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command. Cancelling ctx stops long-running
// commands such as serve and watch.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// notConfigured is returned when a command's service is nil.
func notConfigured(name string) error {
	if startupErr != nil {
		return fmt.Errorf("%s service not configured: %w", name, startupErr)
	}
	return fmt.Errorf("%s service not configured", name)
}
