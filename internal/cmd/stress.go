package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/borrowledger/internal/harness"
	"github.com/Iron-Ham/borrowledger/internal/metrics"
	"github.com/Iron-Ham/borrowledger/internal/report"
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Run concurrent borrow/release cycles and verify the ledger",
	Long: `Run --workers goroutines, each cycling shared and exclusive borrows over
its own range of addresses. Every borrow must be granted, every release must
match, and the ledger must be empty once all workers have finished.

Borrow and release counters are reported at the end. With --metrics-addr
they are also served for Prometheus at /metrics while the run is going.`,
	Args: cobra.NoArgs,
	RunE: runStress,
}

func init() {
	flags := stressCmd.Flags()
	flags.Int("workers", 0, "concurrent workers")
	flags.Int("addresses", 0, "addresses owned by each worker")
	flags.Int("cycles", 0, "borrow/release cycles per worker")
	flags.Int("hold-ns", 0, "time each borrow is held in nanoseconds")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	_ = viper.BindPFlag("stress.workers", flags.Lookup("workers"))
	_ = viper.BindPFlag("stress.addresses_per_worker", flags.Lookup("addresses"))
	_ = viper.BindPFlag("stress.cycles", flags.Lookup("cycles"))
	_ = viper.BindPFlag("stress.hold_ns", flags.Lookup("hold-ns"))
	_ = viper.BindPFlag("stress.metrics_addr", flags.Lookup("metrics-addr"))

	rootCmd.AddCommand(stressCmd)
}

func runStress(cmd *cobra.Command, args []string) error {
	env, err := newRunEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	stress := env.cfg.Stress
	rec := metrics.NewRecorder()
	base := env.newLedger()
	rec.WatchLedger(base)
	l := metrics.Instrument(base, rec)

	if stress.MetricsAddr != "" {
		srv := metrics.NewServer(stress.MetricsAddr, rec, env.logger, stress.MetricsCORSOrigins...)
		if _, err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				env.logger.Warn("metrics server shutdown failed", "error", err)
			}
		}()
	}

	env.logger.Info("stress started",
		"workers", stress.Workers,
		"addresses_per_worker", stress.AddressesPerWorker,
		"cycles", stress.Cycles,
	)

	res, runErr := withProgress(ctx, env, "running stress", func(ctx context.Context) (harness.StressResult, error) {
		return harness.RunStress(ctx, l, harness.StressConfig{
			Workers:            stress.Workers,
			AddressesPerWorker: stress.AddressesPerWorker,
			Cycles:             stress.Cycles,
			Hold:               stress.Hold(),
		}, env.logger)
	})

	rep := report.StressReport{Result: res}
	if snap, err := rec.Snapshot(); err == nil {
		rep.Metrics = &snap
	} else {
		env.logger.Warn("failed to gather metrics", "error", err)
	}
	if runErr != nil {
		rep.Error = runErr.Error()
		env.logger.Error("stress failed", "error", runErr)
	} else {
		env.logger.Info("stress finished", "operations", res.Operations, "duration", res.Duration)
	}

	if err := report.Stress(env.out, env.cfg.Output.Format, rep); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("stress failed: %w", runErr)
	}
	return nil
}
