package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/borrowledger/internal/harness"
	"github.com/Iron-Ham/borrowledger/internal/report"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "Check the borrow rules end to end",
	Long: `Run the end-to-end scenarios against a fresh ledger:

  1. a shared borrow is recorded with count 1
  2. an exclusive borrow is refused while shared
  3. two shared borrows release partially, then fully
  4. an exclusive borrow refuses shared borrows and releases cleanly
  5. releasing an address that was never borrowed is an error
  6. concurrent cycles on disjoint addresses leave the ledger empty

Exits non-zero if any scenario fails.`,
	Args: cobra.NoArgs,
	RunE: runScenarios,
}

func init() {
	rootCmd.AddCommand(scenariosCmd)
}

func runScenarios(cmd *cobra.Command, args []string) error {
	env, err := newRunEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	results := harness.RunScenarios(cmd.Context(), env.newLedger(), env.logger)

	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		}
	}
	env.logger.Info("scenarios finished", "passed", passed, "total", len(results))

	return report.Scenarios(env.out, env.cfg.Output.Format, results)
}
