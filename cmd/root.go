// Package cmd defines and implements the CLI commands for the frontier
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crawlkit/frontier/internal/app"
	"github.com/crawlkit/frontier/internal/config"
	"github.com/crawlkit/frontier/internal/logging"
)

var cfgFile string

// newApp is the application factory. A variable so tests can replace it
// with a mock factory.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app.App, error) {
	return app.New(ctx, cfg, logger)
}

// buildApp loads config, builds the logger and composes the services.
func buildApp(ctx context.Context) (*app.App, config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, config.Config{}, err
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("initialize services: %w", err)
	}
	return a, cfg, nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frontier",
		Short: "Bridge between a crawl controller and a remote shared frontier.",
		Long: `frontier connects local crawl processes to a remotely hosted,
partitioned work queue and a remote deduplication state store, so many
independent consumers can share a single frontier of pending requests.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.AddCommand(newCountCmd())
	cmd.AddCommand(newCleanupCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
