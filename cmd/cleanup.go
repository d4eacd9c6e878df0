package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Wipe the remote state collection and every queue slot",
		RunE:  runCleanupCommand,
	}
}

func runCleanupCommand(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, _, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Backend().FrontierStop(ctx); cerr != nil {
			a.Logger().Warn("frontier stop failed", zap.Error(cerr))
		}
	}()

	stats, err := a.Backend().States().Cleanup(ctx)
	if err != nil {
		return fmt.Errorf("cleanup states: %w", err)
	}
	if err := a.Backend().Queue().WipeSlots(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d records over %d pages (scanned %d)\n",
		stats.Deleted, stats.Pages, stats.Scanned)
	return nil
}
