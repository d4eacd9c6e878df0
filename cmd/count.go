package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Estimate the number of pending entries across all partitions",
		Long: `Reads every partition without acknowledging anything and sums the
entry counts. The result is a lower bound: remote reads may be capped
per call.`,
		RunE: runCountCommand,
	}
}

func runCountCommand(cmd *cobra.Command, _ []string) error {
	a, _, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Backend().FrontierStop(cmd.Context()); cerr != nil {
			a.Logger().Warn("frontier stop failed", zap.Error(cerr))
		}
	}()

	count := a.Backend().Queue().Count(cmd.Context())
	fmt.Fprintln(cmd.OutOrStdout(), count)
	return nil
}
