package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/borrowledger/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "borrowledger",
	Short: "Runtime borrow ledger benchmarks and checks",
	Long: `borrowledger drives the runtime borrow ledger: the process-wide table
that records which addresses are borrowed shared or exclusively.

It runs the micro and contention benchmarks, a concurrent stress test and
the end-to-end scenarios against a ledger built from the configuration.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.config/borrowledger/config.yaml)")
	flags.StringP("output", "o", "", "output format: text, json or yaml")
	flags.String("lock", "", "ledger lock: mutex or spin")
	flags.Int("shards", 0, "number of ledger shards (power of two, 1-256)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-dir", "", "directory for borrowledger.log (default stderr)")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("output.format", flags.Lookup("output"))
	_ = viper.BindPFlag("ledger.lock", flags.Lookup("lock"))
	_ = viper.BindPFlag("ledger.shards", flags.Lookup("shards"))
	_ = viper.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("logging.dir", flags.Lookup("log-dir"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	// e.g. BORROWLEDGER_LEDGER_SHARDS for ledger.shards
	config.BindEnv()

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
