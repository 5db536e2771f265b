package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/t77yq/scrape-scheduler/internal/monitor"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler daemon",
		Long:  "Starts the worker pool and the trigger tick, firing scheduled scraping jobs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a.pool.Start(ctx)
			if err := a.sched.Start(ctx); err != nil {
				return err
			}

			var stats *monitor.StatsCollector
			if a.cfg.Monitor.Enabled {
				stats = monitor.NewStatsCollector(a.store, a.pool, a.cfg.Monitor.Interval, a.logger)
				stats.Start(ctx)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			sig := <-sigCh
			a.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

			if stats != nil {
				stats.Stop()
			}
			a.sched.Stop()
			a.pool.Stop()

			a.logger.Info("Server shutting down gracefully")
			return nil
		},
	}
}
