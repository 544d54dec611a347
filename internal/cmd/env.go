package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/borrowledger/internal/config"
	"github.com/Iron-Ham/borrowledger/internal/ledger"
	"github.com/Iron-Ham/borrowledger/internal/logging"
	"github.com/Iron-Ham/borrowledger/internal/report"
)

// runEnv is what every harness command needs: validated configuration, a
// logger tagged with the run, and the writer results go to.
type runEnv struct {
	cfg    *config.Config
	root   *logging.Logger
	logger *logging.Logger
	out    io.Writer
	runID  string
}

func newRunEnv(cmd *cobra.Command) (*runEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	root, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	return &runEnv{
		cfg:    cfg,
		root:   root,
		logger: root.WithRun(runID).WithCommand(cmd.CommandPath()),
		out:    cmd.OutOrStdout(),
		runID:  runID,
	}, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	if cfg.Logging.Dir == "" {
		return logging.NewWriterLogger(cmd.ErrOrStderr(), cfg.Logging.Level), nil
	}
	logger, err := logging.NewRotatingLogger(cfg.Logging.Dir, cfg.Logging.Level, cfg.Logging.Rotation())
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	return logger, nil
}

func (e *runEnv) Close() {
	_ = e.root.Close()
}

// newLedger builds a private ledger from the ledger config section.
func (e *runEnv) newLedger() *ledger.Ledger {
	return ledger.New(e.cfg.LedgerOptions()...)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// withProgress runs fn, drawing a spinner while it works when text output
// goes to a terminal.
func withProgress[T any](ctx context.Context, env *runEnv, label string, fn func(context.Context) (T, error)) (T, error) {
	if env.cfg.Output.Format == report.FormatText && isTerminal(env.out) {
		return report.RunWithSpinner(ctx, env.out, label, fn)
	}
	return fn(ctx)
}
