package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/borrowledger/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View borrowledger configuration",
	Long: `View borrowledger configuration.

Without arguments, displays the effective configuration after defaults,
the config file, BORROWLEDGER_* environment variables and flags are merged.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/borrowledger/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}

	settings := viper.AllSettings()
	delete(settings, "config")
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = out.Write(data)
	if err != nil {
		return err
	}

	if _, err := config.Load(); err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}
	return nil
}

const defaultConfigFile = `# borrowledger configuration

# Ledger used by bench, stress and scenarios
ledger:
  # Per-shard lock: mutex or spin
  lock: mutex
  # Independently locked shards, a power of two from 1 to 256
  shards: 1

bench:
  # Goroutines borrowing in 'bench contention'
  threads: 4
  # Goroutines started in total; the rest only join the start barrier
  max_threads: 8
  # Operations per case or per goroutine
  iterations: 100000
  # Busy-wait after each contended borrow, in nanoseconds
  delay_ns: 100
  # Glob over 'bench track' case names, empty for all
  filter: ""

stress:
  workers: 8
  addresses_per_worker: 64
  cycles: 10000
  # Time each borrow is held, in nanoseconds
  hold_ns: 0
  # Serve Prometheus metrics during the run, e.g. ":9090"
  metrics_addr: ""
  # Browser origins allowed to read the metrics endpoint, e.g. ["https://grafana.example"]
  metrics_cors_origins: []

logging:
  enabled: true
  # debug, info, warn or error
  level: info
  # Directory for borrowledger.log; empty logs to stderr
  dir: ""
  # Rotate the log file at this size; 0 disables rotation
  max_size_mb: 10
  # Rotated files to keep
  max_backups: 3
  # Gzip rotated files
  compress: false

output:
  # text, json or yaml
  format: text
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigFile), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file: %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", config.ConfigFile())
	}
	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", config.ConfigFile())
	fmt.Fprintln(out, "  2. ./config.yaml")
	return nil
}
