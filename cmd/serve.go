package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crawlkit/frontier/internal/api"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the operational HTTP server (health, counts, metrics)",
		RunE:  runServeCommand,
	}
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, cfg, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Backend().FrontierStop(ctx); cerr != nil {
			a.Logger().Warn("frontier stop failed", zap.Error(cerr))
		}
	}()

	server := api.NewServer(a.Backend(), a.Logger().Named("api"))
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	a.Logger().Info("ops server listening", zap.String("addr", addr))

	httpServer := &http.Server{Addr: addr, Handler: server.Handler()}
	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
