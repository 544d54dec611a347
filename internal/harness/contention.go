package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/Iron-Ham/borrowledger/internal/logging"
)

// ContentionConfig sizes a contention run.
type ContentionConfig struct {
	// Threads goroutines hammer the ledger; the remaining MaxThreads-Threads
	// only join the start barrier.
	Threads    int
	MaxThreads int
	// Iterations per contending goroutine.
	Iterations int
	// Delay is spun after every borrow.
	Delay time.Duration
}

func (c ContentionConfig) validate() error {
	if c.Threads < 1 || c.MaxThreads < c.Threads {
		return fmt.Errorf("need 1 <= threads <= max threads, got %d and %d", c.Threads, c.MaxThreads)
	}
	if c.Iterations < 1 {
		return fmt.Errorf("iterations must be at least 1, got %d", c.Iterations)
	}
	return nil
}

// ContentionResult compares a contended run with a baseline that performs
// the same delays without touching the ledger.
type ContentionResult struct {
	Threads    int           `json:"threads" yaml:"threads"`
	MaxThreads int           `json:"max_threads" yaml:"max_threads"`
	Iterations int           `json:"iterations" yaml:"iterations"`
	Baseline   time.Duration `json:"baseline_ns" yaml:"baseline"`
	Contended  time.Duration `json:"contended_ns" yaml:"contended"`
	Granted    int           `json:"granted" yaml:"granted"`
}

// Overhead returns the contended time per borrow above the baseline.
func (r ContentionResult) Overhead() time.Duration {
	ops := r.Threads * r.Iterations
	if ops == 0 {
		return 0
	}
	return (r.Contended - r.Baseline) / time.Duration(ops)
}

// SweepThreads returns 1, 2, 4, ... up to and including limit.
func SweepThreads(limit int) []int {
	var threads []int
	for n := 1; n < limit; n *= 2 {
		threads = append(threads, n)
	}
	if limit > 0 {
		threads = append(threads, limit)
	}
	return threads
}

// RunContention runs the baseline then the contended workload. Every
// contending goroutine takes shared borrows of the same address, so all of
// them must be granted. l is reset afterwards.
func RunContention(ctx context.Context, l Ledger, cfg ContentionConfig, logger *logging.Logger) (ContentionResult, error) {
	if err := cfg.validate(); err != nil {
		return ContentionResult{}, err
	}
	defer l.Reset()

	res := ContentionResult{
		Threads:    cfg.Threads,
		MaxThreads: cfg.MaxThreads,
		Iterations: cfg.Iterations,
	}

	baseline, _, err := runBarrier(ctx, cfg, func() bool {
		spin(cfg.Delay)
		return true
	})
	if err != nil {
		return res, err
	}
	res.Baseline = baseline

	contended, granted, err := runBarrier(ctx, cfg, func() bool {
		ok := l.TryBorrowShared(probeAddr)
		spin(cfg.Delay)
		return ok
	})
	if err != nil {
		return res, err
	}
	res.Contended = contended
	res.Granted = granted

	logger.Debug("contention run finished",
		"threads", cfg.Threads,
		"baseline", res.Baseline,
		"contended", res.Contended,
	)

	if want := cfg.Threads * cfg.Iterations; granted != want {
		return res, fmt.Errorf("%w: %d of %d shared borrows granted", ErrInvariantViolated, granted, want)
	}
	if n := l.SharedBorrowCount(probeAddr); n != granted {
		return res, fmt.Errorf("%w: shared count %d after %d grants", ErrInvariantViolated, n, granted)
	}
	return res, nil
}

// runBarrier starts cfg.MaxThreads goroutines, releases them together and
// times until the last one returns. The first cfg.Threads call op
// cfg.Iterations times each; granted counts the calls that returned true.
func runBarrier(ctx context.Context, cfg ContentionConfig, op func() bool) (elapsed time.Duration, granted int, err error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	start := make(chan struct{})
	counts := make([]int, cfg.Threads)
	var wg conc.WaitGroup

	for i := 0; i < cfg.MaxThreads; i++ {
		if i >= cfg.Threads {
			wg.Go(func() { <-start })
			continue
		}
		wg.Go(func() {
			<-start
			n := 0
			for j := 0; j < cfg.Iterations; j++ {
				if j&1023 == 0 && ctx.Err() != nil {
					break
				}
				if op() {
					n++
				}
			}
			counts[i] = n
		})
	}

	began := time.Now()
	close(start)
	wg.Wait()
	elapsed = time.Since(began)

	for _, n := range counts {
		granted += n
	}
	return elapsed, granted, ctx.Err()
}
