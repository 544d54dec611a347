package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/borrowledger/internal/harness"
	"github.com/Iron-Ham/borrowledger/internal/report"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run ledger benchmarks",
	Long: `Run ledger benchmarks against a fresh ledger built from the configuration.

Use 'bench track' for single-goroutine operation costs and
'bench contention' for many goroutines borrowing one address.`,
}

var benchTrackCmd = &cobra.Command{
	Use:   "track",
	Short: "Measure the cost of individual ledger operations",
	Long: `Measure the cost of individual ledger operations from a single goroutine.

Cases can be selected with a glob over their names, e.g.:
  borrowledger bench track --filter 'is-tracked-*'
  borrowledger bench track --filter 'track-untrack-*'`,
	Args: cobra.NoArgs,
	RunE: runBenchTrack,
}

var benchContentionCmd = &cobra.Command{
	Use:   "contention",
	Short: "Measure shared borrows of one address from many goroutines",
	Long: `Start --max-threads goroutines, release them together, and let --threads
of them take shared borrows of the same address with a short busy-wait after
each. The same run without the ledger is timed as a baseline.

With --sweep, thread counts 1, 2, 4, ... up to --max-threads are run in turn.`,
	Args: cobra.NoArgs,
	RunE: runBenchContention,
}

var benchSweep bool

func init() {
	trackFlags := benchTrackCmd.Flags()
	trackFlags.String("filter", "", "glob selecting case names")
	trackFlags.Int("iterations", 0, "operations per case")
	_ = viper.BindPFlag("bench.filter", trackFlags.Lookup("filter"))
	_ = viper.BindPFlag("bench.iterations", trackFlags.Lookup("iterations"))

	contentionFlags := benchContentionCmd.Flags()
	contentionFlags.Int("threads", 0, "goroutines borrowing the address")
	contentionFlags.Int("max-threads", 0, "goroutines started in total")
	contentionFlags.Int("delay-ns", 0, "busy-wait after each borrow in nanoseconds")
	contentionFlags.BoolVar(&benchSweep, "sweep", false, "run every power-of-two thread count up to --max-threads")
	_ = viper.BindPFlag("bench.threads", contentionFlags.Lookup("threads"))
	_ = viper.BindPFlag("bench.max_threads", contentionFlags.Lookup("max-threads"))
	_ = viper.BindPFlag("bench.delay_ns", contentionFlags.Lookup("delay-ns"))

	benchCmd.AddCommand(benchTrackCmd)
	benchCmd.AddCommand(benchContentionCmd)
	rootCmd.AddCommand(benchCmd)
}

func runBenchTrack(cmd *cobra.Command, args []string) error {
	env, err := newRunEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	bench := env.cfg.Bench
	env.logger.Info("track benchmark started", "iterations", bench.Iterations, "filter", bench.Filter)

	l := env.newLedger()
	results, err := withProgress(cmd.Context(), env, "running track benchmarks",
		func(ctx context.Context) ([]harness.TrackResult, error) {
			return harness.RunTrack(ctx, l, bench.Iterations, bench.Filter, env.logger)
		})
	if err != nil {
		return fmt.Errorf("track benchmark failed: %w", err)
	}

	env.logger.Info("track benchmark finished", "cases", len(results))
	return report.Track(env.out, env.cfg.Output.Format, results)
}

func runBenchContention(cmd *cobra.Command, args []string) error {
	env, err := newRunEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	bench := env.cfg.Bench
	threads := []int{bench.Threads}
	if benchSweep {
		threads = harness.SweepThreads(bench.MaxThreads)
	}
	env.logger.Info("contention benchmark started",
		"threads", threads,
		"max_threads", bench.MaxThreads,
		"delay", bench.Delay(),
	)

	l := env.newLedger()
	results, err := withProgress(cmd.Context(), env, "running contention benchmark",
		func(ctx context.Context) ([]harness.ContentionResult, error) {
			var results []harness.ContentionResult
			for _, n := range threads {
				res, err := harness.RunContention(ctx, l, harness.ContentionConfig{
					Threads:    n,
					MaxThreads: bench.MaxThreads,
					Iterations: bench.Iterations,
					Delay:      bench.Delay(),
				}, env.logger)
				if err != nil {
					return results, err
				}
				results = append(results, res)
			}
			return results, nil
		})
	if err != nil {
		return fmt.Errorf("contention benchmark failed: %w", err)
	}

	env.logger.Info("contention benchmark finished", "runs", len(results))
	return report.Contention(env.out, env.cfg.Output.Format, results)
}
