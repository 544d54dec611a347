package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/borrowledger/internal/config"
	"github.com/Iron-Ham/borrowledger/internal/logging"
	"github.com/Iron-Ham/borrowledger/internal/report"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View harness run logs",
	Long: `View and filter the log written to logging.dir by bench, stress and
scenarios runs.

By default, shows the last 50 entries of the most recent run.

Examples:
  # List the runs in the log
  borrowledger logs --runs

  # Show all entries of one run
  borrowledger logs --run 5f0c... -n 0

  # Warnings and errors from every run in the last hour
  borrowledger logs --all --level warn --since 1h

  # Watch a stress run from another terminal
  borrowledger logs -f`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsRunID  string
	logsAll    bool
	logsRuns   bool
	logsTail   int
	logsLevel  string
	logsSince  time.Duration
	logsGrep   string
	logsFollow bool
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVar(&logsRunID, "run", "", "Run ID (default: most recent)")
	logsCmd.Flags().BoolVar(&logsAll, "all", false, "Show entries from every run")
	logsCmd.Flags().BoolVar(&logsRuns, "runs", false, "List runs instead of entries")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Minimum level (debug/info/warn/error)")
	logsCmd.Flags().DurationVar(&logsSince, "since", 0, "Show entries newer than this (e.g. 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Show entries whose message contains this text")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow new entries from every run (like tail -f)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Logging.Dir == "" {
		return fmt.Errorf("logging.dir is not set; runs log to stderr and nothing was kept")
	}

	out := cmd.OutOrStdout()
	format := cfg.Output.Format

	if logsFollow {
		return followLogs(cmd, cfg.Logging.Dir, format)
	}

	entries, err := logging.ReadLogs(cfg.Logging.Dir)
	if err != nil {
		return err
	}

	runs := logging.SummarizeRuns(entries)
	if logsRuns {
		return report.Runs(out, format, runs)
	}

	filter := logging.LogFilter{
		Level:    logsLevel,
		RunID:    logsRunID,
		Contains: logsGrep,
	}
	if logsSince > 0 {
		filter.Since = time.Now().Add(-logsSince)
	}
	if filter.RunID == "" && !logsAll && len(runs) > 0 {
		filter.RunID = runs[0].RunID
	}

	entries = logging.FilterLogs(entries, filter)
	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}
	return report.Logs(out, format, entries)
}

// followLogs prints matching entries as they are appended until interrupted.
// --run, --level and --grep apply; --tail and --since do not.
func followLogs(cmd *cobra.Command, dir, format string) error {
	f, err := logging.NewFollower(dir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	if format == report.FormatText {
		fmt.Fprintln(out, "Following logs... (Ctrl+C to stop)")
	}

	filter := logging.LogFilter{Level: logsLevel, RunID: logsRunID, Contains: logsGrep}
	var writeErr error
	err = f.Run(ctx, func(e logging.LogEntry) {
		if writeErr != nil || len(logging.FilterLogs([]logging.LogEntry{e}, filter)) == 0 {
			return
		}
		writeErr = report.LogLine(out, format, e)
	})
	if err != nil {
		return err
	}
	return writeErr
}
