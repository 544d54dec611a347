package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Iron-Ham/borrowledger/internal/ledger"
	"github.com/Iron-Ham/borrowledger/internal/logging"
)

// EnvPrefix is prepended to every environment variable that overrides a
// config key, e.g. BORROWLEDGER_LEDGER_SHARDS.
const EnvPrefix = "BORROWLEDGER"

// Config represents the complete borrowledger configuration
type Config struct {
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Bench   BenchConfig   `mapstructure:"bench"`
	Stress  StressConfig  `mapstructure:"stress"`
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
}

// LedgerConfig selects how the ledger used by the harness is built.
// The exported C library always uses the defaults.
type LedgerConfig struct {
	// Lock is the per-shard lock primitive: "mutex" or "spin" (default: "mutex")
	Lock string `mapstructure:"lock"`
	// Shards is the number of independently locked shards, a power of two
	// between 1 and 256 (default: 1)
	Shards int `mapstructure:"shards"`
}

// BenchConfig controls the bench commands
type BenchConfig struct {
	// Threads is the number of contending goroutines (default: 4)
	Threads int `mapstructure:"threads"`
	// MaxThreads is the total number of goroutines started; only Threads of
	// them touch the ledger (default: 8)
	MaxThreads int `mapstructure:"max_threads"`
	// Iterations is the number of operations per goroutine or per case (default: 100000)
	Iterations int `mapstructure:"iterations"`
	// DelayNs is the busy-wait inserted after each contended borrow (default: 100)
	DelayNs int `mapstructure:"delay_ns"`
	// Filter is a glob over case names; empty runs every case
	Filter string `mapstructure:"filter"`
}

// Delay returns DelayNs as a time.Duration
func (c *BenchConfig) Delay() time.Duration {
	return time.Duration(c.DelayNs) * time.Nanosecond
}

// StressConfig controls the stress command
type StressConfig struct {
	// Workers is the number of concurrent workers (default: 8)
	Workers int `mapstructure:"workers"`
	// AddressesPerWorker is the size of each worker's private address range (default: 64)
	AddressesPerWorker int `mapstructure:"addresses_per_worker"`
	// Cycles is the number of borrow/hold/release cycles per worker (default: 10000)
	Cycles int `mapstructure:"cycles"`
	// HoldNs is how long a borrow is held before release (default: 0)
	HoldNs int `mapstructure:"hold_ns"`
	// MetricsAddr, when set, serves Prometheus metrics on this address while
	// the stress run is in progress (e.g. ":9090")
	MetricsAddr string `mapstructure:"metrics_addr"`
	// MetricsCORSOrigins lists browser origins allowed to read the metrics
	// endpoint, e.g. a dashboard at "https://grafana.example"; "*" allows any
	MetricsCORSOrigins []string `mapstructure:"metrics_cors_origins"`
}

// Hold returns HoldNs as a time.Duration
func (c *StressConfig) Hold() time.Duration {
	return time.Duration(c.HoldNs) * time.Nanosecond
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the directory for borrowledger.log; empty logs to stderr
	Dir string `mapstructure:"dir"`
	// MaxSizeMB is the log file size in megabytes that triggers rotation;
	// 0 disables rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated log files kept (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated log files (default: false)
	Compress bool `mapstructure:"compress"`
}

// Rotation converts the logging section into a logging.RotationConfig.
func (c *LoggingConfig) Rotation() logging.RotationConfig {
	return logging.RotationConfig{
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		Compress:   c.Compress,
	}
}

// OutputConfig controls how results are printed
type OutputConfig struct {
	// Format is one of "text", "json", "yaml" (default: "text")
	Format string `mapstructure:"format"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Ledger: LedgerConfig{
			Lock:   string(ledger.LockMutex),
			Shards: 1,
		},
		Bench: BenchConfig{
			Threads:    4,
			MaxThreads: 8,
			Iterations: 100000,
			DelayNs:    100,
		},
		Stress: StressConfig{
			Workers:            8,
			AddressesPerWorker: 64,
			Cycles:             10000,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Ledger defaults
	viper.SetDefault("ledger.lock", defaults.Ledger.Lock)
	viper.SetDefault("ledger.shards", defaults.Ledger.Shards)

	// Bench defaults
	viper.SetDefault("bench.threads", defaults.Bench.Threads)
	viper.SetDefault("bench.max_threads", defaults.Bench.MaxThreads)
	viper.SetDefault("bench.iterations", defaults.Bench.Iterations)
	viper.SetDefault("bench.delay_ns", defaults.Bench.DelayNs)
	viper.SetDefault("bench.filter", defaults.Bench.Filter)

	// Stress defaults
	viper.SetDefault("stress.workers", defaults.Stress.Workers)
	viper.SetDefault("stress.addresses_per_worker", defaults.Stress.AddressesPerWorker)
	viper.SetDefault("stress.cycles", defaults.Stress.Cycles)
	viper.SetDefault("stress.hold_ns", defaults.Stress.HoldNs)
	viper.SetDefault("stress.metrics_addr", defaults.Stress.MetricsAddr)
	viper.SetDefault("stress.metrics_cors_origins", defaults.Stress.MetricsCORSOrigins)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	// Output defaults
	viper.SetDefault("output.format", defaults.Output.Format)
}

// BindEnv lets BORROWLEDGER_* environment variables override config keys.
// Dots in nested keys become underscores, e.g. BORROWLEDGER_BENCH_DELAY_NS
// for bench.delay_ns.
func BindEnv() {
	viper.AutomaticEnv()
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LedgerOptions converts the ledger section into constructor options.
func (c *Config) LedgerOptions() []ledger.Option {
	return []ledger.Option{
		ledger.WithLock(ledger.LockKind(c.Ledger.Lock)),
		ledger.WithShards(c.Ledger.Shards),
	}
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "borrowledger")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".borrowledger"
	}
	return filepath.Join(home, ".config", "borrowledger")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
