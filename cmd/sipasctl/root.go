package main

import (
	"context"
	"flag"

	"github.com/spf13/cobra"

	"github.com/sipas/persuratan/internal/app"
	"github.com/sipas/persuratan/internal/config"
	"github.com/sipas/persuratan/internal/logging"
)

// NewRootCmd creates the sipasctl command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sipasctl",
		Short: "Administrative tasks for the SIPAS correspondence server",
		Long: `sipasctl shares configuration with the server: environment variables,
optionally loaded from the .env file named by ENV_FILE.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		NewMigrateCmd(),
		NewSeedKategoriCmd(),
		NewImportSuratMasukCmd(),
		NewCreateAdminCmd(),
		NewCacheStatsCmd(),
		NewCacheInvalidateCmd(),
	)

	return root
}

// loadConfig reads configuration from the environment only; command-line
// flags belong to cobra.
func loadConfig() (*config.Config, *logging.Logger) {
	cfg := config.LoadFrom(flag.NewFlagSet("sipasctl", flag.ContinueOnError), nil)
	return cfg, app.NewLogger(cfg.Logging)
}

// withApp builds the full application, runs fn and releases its resources
func withApp(ctx context.Context, fn func(*app.App) error) error {
	cfg, logger := loadConfig()

	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer application.Shutdown(context.WithoutCancel(ctx))

	return fn(application)
}
