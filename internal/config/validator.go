package config

import (
	"fmt"
	"math/bits"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/Iron-Ham/borrowledger/internal/ledger"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "ledger.shards")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// maxLogSizeMB caps a single log file before rotation.
const maxLogSizeMB = 1024

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidOutputFormats returns the list of valid output formats
func ValidOutputFormats() []string {
	return []string{"text", "json", "yaml"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateLedger()...)
	errors = append(errors, c.validateBench()...)
	errors = append(errors, c.validateStress()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateOutput()...)

	return errors
}

func (c *Config) validateLedger() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ledger.ValidLockKinds(), c.Ledger.Lock) {
		errors = append(errors, ValidationError{
			Field:   "ledger.lock",
			Value:   c.Ledger.Lock,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ledger.ValidLockKinds(), ", ")),
		})
	}

	if n := c.Ledger.Shards; n < 1 || n > ledger.MaxShards || bits.OnesCount(uint(n)) != 1 {
		errors = append(errors, ValidationError{
			Field:   "ledger.shards",
			Value:   c.Ledger.Shards,
			Message: fmt.Sprintf("must be a power of two between 1 and %d", ledger.MaxShards),
		})
	}

	return errors
}

func (c *Config) validateBench() []ValidationError {
	var errors []ValidationError

	if c.Bench.Threads < 1 {
		errors = append(errors, ValidationError{
			Field:   "bench.threads",
			Value:   c.Bench.Threads,
			Message: "must be at least 1",
		})
	}

	if c.Bench.MaxThreads < c.Bench.Threads {
		errors = append(errors, ValidationError{
			Field:   "bench.max_threads",
			Value:   c.Bench.MaxThreads,
			Message: fmt.Sprintf("must be at least bench.threads (%d)", c.Bench.Threads),
		})
	}

	if c.Bench.Iterations < 1 {
		errors = append(errors, ValidationError{
			Field:   "bench.iterations",
			Value:   c.Bench.Iterations,
			Message: "must be at least 1",
		})
	}

	if c.Bench.DelayNs < 0 {
		errors = append(errors, ValidationError{
			Field:   "bench.delay_ns",
			Value:   c.Bench.DelayNs,
			Message: "must be non-negative",
		})
	}

	if c.Bench.Filter != "" {
		if _, err := glob.Compile(c.Bench.Filter); err != nil {
			errors = append(errors, ValidationError{
				Field:   "bench.filter",
				Value:   c.Bench.Filter,
				Message: fmt.Sprintf("invalid glob pattern: %v", err),
			})
		}
	}

	return errors
}

func (c *Config) validateStress() []ValidationError {
	var errors []ValidationError

	positive := []struct {
		field string
		value int
	}{
		{"stress.workers", c.Stress.Workers},
		{"stress.addresses_per_worker", c.Stress.AddressesPerWorker},
		{"stress.cycles", c.Stress.Cycles},
	}
	for _, p := range positive {
		if p.value < 1 {
			errors = append(errors, ValidationError{
				Field:   p.field,
				Value:   p.value,
				Message: "must be at least 1",
			})
		}
	}

	if c.Stress.HoldNs < 0 {
		errors = append(errors, ValidationError{
			Field:   "stress.hold_ns",
			Value:   c.Stress.HoldNs,
			Message: "must be non-negative",
		})
	}

	for _, origin := range c.Stress.MetricsCORSOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			errors = append(errors, ValidationError{
				Field:   "stress.metrics_cors_origins",
				Value:   origin,
				Message: `must be "*" or start with http:// or https://`,
			})
		}
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("must be between 0 and %d", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateOutput() []ValidationError {
	if slices.Contains(ValidOutputFormats(), c.Output.Format) {
		return nil
	}
	return []ValidationError{{
		Field:   "output.format",
		Value:   c.Output.Format,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidOutputFormats(), ", ")),
	}}
}
