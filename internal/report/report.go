// Package report renders harness results as styled text, JSON or YAML.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/borrowledger/internal/harness"
	"github.com/Iron-Ham/borrowledger/internal/metrics"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrScenariosFailed is returned by Scenarios after it has printed a report
// in which at least one scenario failed.
var ErrScenariosFailed = errors.New("one or more scenarios failed")

// encode writes v as JSON or YAML. ok is false for any other format.
func encode(w io.Writer, format string, v any) (ok bool, err error) {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	default:
		return false, nil
	}
}

func checkFormat(format string) error {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// Track writes micro benchmark results.
func Track(w io.Writer, format string, results []harness.TrackResult) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	if ok, err := encode(w, format, results); ok {
		return err
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Track benchmarks") + "\n\n")
	b.WriteString(headerStyle.Render(
		column("CASE", 36, false)+column("ITERATIONS", 12, true)+column("NS/OP", 12, true)+column("ALLOCS/OP", 12, true),
	) + "\n")
	for _, r := range results {
		b.WriteString(column(r.Name, 36, false))
		b.WriteString(column(fmt.Sprintf("%d", r.Iterations), 12, true))
		b.WriteString(column(fmt.Sprintf("%.2f", r.NsPerOp), 12, true))
		allocs := fmt.Sprintf("%.2f", r.AllocsPerOp)
		if r.AllocsPerOp > 0 {
			allocs = warnStyle.Render(allocs)
		}
		b.WriteString(column(allocs, 12, true) + "\n")
	}
	if len(results) == 0 {
		b.WriteString(mutedStyle.Render("no cases matched the filter") + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Contention writes contention results, one row per thread count.
func Contention(w io.Writer, format string, results []harness.ContentionResult) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	if ok, err := encode(w, format, results); ok {
		return err
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Contention") + "\n\n")
	b.WriteString(headerStyle.Render(
		column("THREADS", 10, false)+column("BASELINE", 14, true)+column("CONTENDED", 14, true)+column("OVERHEAD/OP", 14, true),
	) + "\n")
	for _, r := range results {
		b.WriteString(column(fmt.Sprintf("%d/%d", r.Threads, r.MaxThreads), 10, false))
		b.WriteString(column(r.Baseline.Round(time.Microsecond).String(), 14, true))
		b.WriteString(column(r.Contended.Round(time.Microsecond).String(), 14, true))
		b.WriteString(column(r.Overhead().String(), 14, true) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// StressReport combines a stress result with the counters recorded during
// the run.
type StressReport struct {
	Result  harness.StressResult `json:"result" yaml:"result"`
	Metrics *metrics.Snapshot    `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Error   string               `json:"error,omitempty" yaml:"error,omitempty"`
}

// Stress writes a stress run summary.
func Stress(w io.Writer, format string, rep StressReport) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	if ok, err := encode(w, format, rep); ok {
		return err
	}

	r := rep.Result
	var b strings.Builder
	b.WriteString(titleStyle.Render("Stress") + "\n\n")
	fmt.Fprintf(&b, "  workers     %d\n", r.Workers)
	fmt.Fprintf(&b, "  cycles      %d per worker\n", r.Cycles)
	fmt.Fprintf(&b, "  operations  %d\n", r.Operations)
	fmt.Fprintf(&b, "  duration    %s\n", r.Duration.Round(time.Millisecond))
	if r.Duration > 0 {
		fmt.Fprintf(&b, "  throughput  %.0f ops/s\n", float64(r.Operations)/r.Duration.Seconds())
	}
	fmt.Fprintf(&b, "  remaining   %d\n", r.Remaining)

	if rep.Metrics != nil {
		b.WriteString("\n" + headerStyle.Render("Counters") + "\n")
		writeCounters(&b, "borrows", rep.Metrics.Borrows)
		writeCounters(&b, "releases", rep.Metrics.Releases)
	}

	b.WriteString("\n")
	if rep.Error != "" {
		b.WriteString(failStyle.Render("FAIL") + " " + rep.Error + "\n")
	} else {
		b.WriteString(passStyle.Render("PASS") + " ledger empty, no invariant violations\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeCounters(b *strings.Builder, name string, counters map[string]float64) {
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "  %-9s %-22s %.0f\n", name, k, counters[k])
	}
}

// Scenarios writes scenario results. It returns ErrScenariosFailed, after
// writing, if any scenario failed.
func Scenarios(w io.Writer, format string, results []harness.ScenarioResult) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if !r.Passed {
			failed++
		}
	}

	if ok, err := encode(w, format, results); ok {
		if err != nil {
			return err
		}
	} else {
		var b strings.Builder
		b.WriteString(titleStyle.Render("Scenarios") + "\n\n")
		for i, r := range results {
			status := passStyle.Render("PASS")
			if !r.Passed {
				status = failStyle.Render("FAIL")
			}
			fmt.Fprintf(&b, "  %s %d. %s %s\n", status, i+1, r.Name,
				mutedStyle.Render(r.Duration.Round(time.Microsecond).String()))
			if r.Error != "" {
				for _, line := range strings.Split(r.Error, "\n") {
					b.WriteString("       " + failStyle.Render(line) + "\n")
				}
			}
		}
		fmt.Fprintf(&b, "\n%d passed, %d failed\n", len(results)-failed, failed)
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}

	if failed > 0 {
		return ErrScenariosFailed
	}
	return nil
}
