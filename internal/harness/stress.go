package harness

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Iron-Ham/borrowledger/internal/ledger"
	"github.com/Iron-Ham/borrowledger/internal/logging"
)

// StressConfig sizes a stress run.
type StressConfig struct {
	Workers            int
	AddressesPerWorker int
	Cycles             int
	Hold               time.Duration
}

func (c StressConfig) validate() error {
	if c.Workers < 1 || c.AddressesPerWorker < 1 || c.Cycles < 1 {
		return fmt.Errorf("workers, addresses per worker and cycles must be positive, got %d, %d, %d",
			c.Workers, c.AddressesPerWorker, c.Cycles)
	}
	return nil
}

// StressResult summarizes a stress run.
type StressResult struct {
	Workers    int           `json:"workers" yaml:"workers"`
	Cycles     int           `json:"cycles" yaml:"cycles"`
	Operations uint64        `json:"operations" yaml:"operations"`
	Duration   time.Duration `json:"duration_ns" yaml:"duration"`
	Remaining  int           `json:"remaining" yaml:"remaining"`
}

const (
	stressBase   ledger.Addr = 0x10_0000
	stressStride ledger.Addr = 8
)

// workerAddr returns the i-th address owned by worker w. Ranges of different
// workers never overlap.
func workerAddr(cfg StressConfig, w, i int) ledger.Addr {
	return stressBase + ledger.Addr(w*cfg.AddressesPerWorker+i)*stressStride
}

// RunStress runs cfg.Workers goroutines, each cycling borrows and releases
// over its own address range. Because ranges are disjoint, every borrow must
// be granted and every release must match; anything else is reported as
// ErrInvariantViolated. After all workers return the ledger must be empty.
// l should be empty when the run starts.
func RunStress(ctx context.Context, l Ledger, cfg StressConfig, logger *logging.Logger) (StressResult, error) {
	if err := cfg.validate(); err != nil {
		return StressResult{}, err
	}

	res := StressResult{Workers: cfg.Workers, Cycles: cfg.Cycles}
	var ops atomic.Uint64
	progress := &rate.Sometimes{Interval: time.Second}
	report := func() {
		progress.Do(func() {
			logger.Info("stress progress", "operations", ops.Load())
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	began := time.Now()
	for w := 0; w < cfg.Workers; w++ {
		g.Go(func() error {
			wlog := logger.WithWorker(w)
			n, err := stressWorker(gctx, l, cfg, w, &ops, report)
			if err != nil {
				wlog.Error("stress worker failed", "error", err, "operations", n)
				return err
			}
			wlog.Debug("stress worker done", "operations", n)
			return nil
		})
	}
	err := g.Wait()
	res.Duration = time.Since(began)
	res.Operations = ops.Load()
	res.Remaining = l.Len()

	if err != nil {
		return res, err
	}
	if res.Remaining != 0 {
		return res, fmt.Errorf("%w: %d addresses still borrowed after all workers joined",
			ErrInvariantViolated, res.Remaining)
	}
	return res, nil
}

// stressWorker alternates two cycles on each address it owns: a double
// shared borrow released in two steps, and an exclusive borrow that must
// refuse a shared borrow while held.
// Completed operations are added to total; tick is called every 256 cycles.
func stressWorker(ctx context.Context, l Ledger, cfg StressConfig, w int, total *atomic.Uint64, tick func()) (uint64, error) {
	var ops uint64
	for c := 0; c < cfg.Cycles; c++ {
		if err := ctx.Err(); err != nil {
			return ops, err
		}
		a := workerAddr(cfg, w, c%cfg.AddressesPerWorker)

		var err error
		var n uint64
		if c%2 == 0 {
			n, err = sharedCycle(l, a, cfg.Hold)
		} else {
			n, err = exclusiveCycle(l, a, cfg.Hold)
		}
		ops += n
		total.Add(n)
		if err != nil {
			return ops, fmt.Errorf("worker %d cycle %d at %s: %w", w, c, a, err)
		}
		if c&255 == 255 {
			tick()
		}
	}
	return ops, nil
}

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolated, fmt.Sprintf(format, args...))
}

func sharedCycle(l Ledger, a ledger.Addr, hold time.Duration) (uint64, error) {
	if !l.TryBorrowShared(a) || !l.TryBorrowShared(a) {
		return 2, violation("shared borrow of an owned address refused")
	}
	if n := l.SharedBorrowCount(a); n != 2 {
		return 3, violation("shared count %d, want 2", n)
	}
	if l.TryBorrowExclusive(a) {
		return 4, violation("exclusive borrow granted while shared")
	}
	spin(hold)

	rel, err := l.UnborrowShared(a)
	if err != nil || rel != ledger.PartiallyReleased {
		return 5, violation("first shared release: %v, %v", rel, err)
	}
	rel, err = l.UnborrowShared(a)
	if err != nil || rel != ledger.FullyReleased {
		return 6, violation("second shared release: %v, %v", rel, err)
	}
	if l.IsBorrowed(a) {
		return 7, violation("address still borrowed after full release")
	}
	return 7, nil
}

func exclusiveCycle(l Ledger, a ledger.Addr, hold time.Duration) (uint64, error) {
	if !l.TryBorrowExclusive(a) {
		return 1, violation("exclusive borrow of an owned address refused")
	}
	if l.TryBorrowShared(a) || l.TryBorrowExclusive(a) {
		return 3, violation("second borrow granted while exclusive")
	}
	if !l.IsBorrowedExclusive(a) || l.SharedBorrowCount(a) != 0 {
		return 4, violation("exclusive state not visible")
	}
	spin(hold)

	if err := l.UnborrowExclusive(a); err != nil {
		return 5, violation("exclusive release: %v", err)
	}
	if _, err := l.UnborrowShared(a); !errors.Is(err, ledger.ErrReleaseMismatch) {
		return 6, violation("release of a free address returned %v", err)
	}
	return 6, nil
}
