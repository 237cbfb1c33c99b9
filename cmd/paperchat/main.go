// Command paperchat indexes PDF documents and answers questions about them
// with citations.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/paperchat/internal/adapters/driven/ai"
	"github.com/custodia-labs/paperchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/paperchat/internal/adapters/driving/cli"
	"github.com/custodia-labs/paperchat/internal/app"
	"github.com/custodia-labs/paperchat/internal/core/services"
	"github.com/custodia-labs/paperchat/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = ""

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	if err := configure(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	defer closeApp()

	// cobra reports command errors itself.
	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}

// closeApp releases the application built by configure, if any.
var closeApp = func() {}

// configure loads settings and installs the services used by the commands.
func configure() error {
	configDir, err := file.DefaultDir()
	if err != nil {
		return fmt.Errorf("locate config dir: %w", err)
	}
	loadEnv(".env", filepath.Join(configDir, ".env"))

	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(store, ai.NewConfigValidator(ai.DefaultRegistry()))
	cli.SetVersion(version)

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	a, err := app.New(*settings)
	if err != nil {
		// Settings commands still work so the user can fix the configuration.
		cli.SetStartupError(err)
		cli.SetServices(cli.Services{Settings: settingsService, Server: settings.Server})
	} else {
		closeApp = func() {
			if err := a.Close(); err != nil {
				logger.Warn("close: %v", err)
			}
		}
		cli.SetServices(cli.Services{
			Ingest:   a.Ingest,
			Bulk:     a.Bulk,
			Query:    a.Query,
			Stats:    a.Stats,
			Settings: settingsService,
			Server:   settings.Server,
		})
	}
	return nil
}

// loadEnv reads .env files without overriding variables already set.
// Missing files are ignored.
func loadEnv(paths ...string) {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("load %s: %v", p, err)
		}
	}
}
