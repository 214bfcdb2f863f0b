package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prompt-general/cscx/internal/api"
)

const shutdownTimeout = 30 * time.Second

func serveCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the expansion API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := rt.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			gateway := api.NewGateway(rt.cfg.API, a.Engine,
				api.WithHealth(a.HealthChecker().HTTPHandler()),
				api.WithCacheStats(a.Cache),
			)

			errCh := make(chan error, 1)
			go func() { errCh <- gateway.Start() }()

			zap.L().Info("cscx started", zap.String("version", version))

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			zap.L().Info("shutdown signal received, stopping services")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := gateway.Stop(shutdownCtx); err != nil {
				zap.L().Error("gateway shutdown failed", zap.Error(err))
				return err
			}
			zap.L().Info("cscx stopped")
			return nil
		},
	}
}
