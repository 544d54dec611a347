package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Iron-Ham/borrowledger/internal/ledger"
	"github.com/Iron-Ham/borrowledger/internal/logging"
)

// Scenario is one end-to-end check of the borrow rules.
type Scenario struct {
	Name        string
	Description string
	Run         func(ctx context.Context, l Ledger) error
}

// ScenarioResult is the outcome of one Scenario.
type ScenarioResult struct {
	Name     string        `json:"name" yaml:"name"`
	Passed   bool          `json:"passed" yaml:"passed"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration `json:"duration_ns" yaml:"duration"`
}

// expect returns an ErrInvariantViolated error naming the step when got != want.
func expect[T comparable](step string, got, want T) error {
	if got != want {
		return fmt.Errorf("%w: %s = %v, want %v", ErrInvariantViolated, step, got, want)
	}
	return nil
}

// Scenarios returns the end-to-end scenarios in order. Scenario 2 builds on
// the state left by scenario 1, so each Run sets up its own preconditions.
func Scenarios() []Scenario {
	return []Scenario{
		{
			Name:        "shared-borrow",
			Description: "a shared borrow is recorded with count 1",
			Run: func(_ context.Context, l Ledger) error {
				return errors.Join(
					expect("try_borrow_shared", l.TryBorrowShared(probeAddr), true),
					expect("is_borrowed_shared", l.IsBorrowedShared(probeAddr), true),
					expect("shared_borrow_count", l.SharedBorrowCount(probeAddr), 1),
				)
			},
		},
		{
			Name:        "exclusive-refused-while-shared",
			Description: "an exclusive borrow is refused and leaves the shared borrow intact",
			Run: func(_ context.Context, l Ledger) error {
				l.TryBorrowShared(probeAddr)
				return errors.Join(
					expect("try_borrow_exclusive", l.TryBorrowExclusive(probeAddr), false),
					expect("shared_borrow_count", l.SharedBorrowCount(probeAddr), 1),
				)
			},
		},
		{
			Name:        "shared-release-steps",
			Description: "two shared borrows release partially then fully",
			Run: func(_ context.Context, l Ledger) error {
				errs := []error{
					expect("first try_borrow_shared", l.TryBorrowShared(probeAddr), true),
					expect("second try_borrow_shared", l.TryBorrowShared(probeAddr), true),
					expect("shared_borrow_count", l.SharedBorrowCount(probeAddr), 2),
				}
				rel, err := l.UnborrowShared(probeAddr)
				errs = append(errs, err,
					expect("first unborrow_shared", rel, ledger.PartiallyReleased),
					expect("shared_borrow_count", l.SharedBorrowCount(probeAddr), 1))
				rel, err = l.UnborrowShared(probeAddr)
				errs = append(errs, err,
					expect("second unborrow_shared", rel, ledger.FullyReleased),
					expect("is_borrowed", l.IsBorrowed(probeAddr), false))
				return errors.Join(errs...)
			},
		},
		{
			Name:        "exclusive-borrow",
			Description: "an exclusive borrow refuses shared borrows and releases cleanly",
			Run: func(_ context.Context, l Ledger) error {
				return errors.Join(
					expect("try_borrow_exclusive", l.TryBorrowExclusive(probeAddr), true),
					expect("try_borrow_shared", l.TryBorrowShared(probeAddr), false),
					l.UnborrowExclusive(probeAddr),
					expect("is_borrowed", l.IsBorrowed(probeAddr), false),
				)
			},
		},
		{
			Name:        "release-mismatch",
			Description: "releasing an address that was never borrowed is an error",
			Run: func(_ context.Context, l Ledger) error {
				_, err := l.UnborrowShared(probeAddr)
				var mismatch *ledger.MismatchError
				if !errors.As(err, &mismatch) {
					return fmt.Errorf("%w: unborrow_shared returned %v, want a release mismatch", ErrInvariantViolated, err)
				}
				return expect("mismatch found", mismatch.Found, ledger.KindFree)
			},
		},
		{
			Name:        "disjoint-stress",
			Description: "concurrent borrow/release cycles on disjoint addresses leave the ledger empty",
			Run: func(ctx context.Context, l Ledger) error {
				_, err := RunStress(ctx, l, StressConfig{Workers: 8, AddressesPerWorker: 16, Cycles: 2000}, logging.NopLogger())
				return err
			},
		},
	}
}

// RunScenarios runs every scenario against l, resetting it before each one.
// A failing scenario does not stop the others.
func RunScenarios(ctx context.Context, l Ledger, logger *logging.Logger) []ScenarioResult {
	scenarios := Scenarios()
	results := make([]ScenarioResult, 0, len(scenarios))
	for _, s := range scenarios {
		l.Reset()
		began := time.Now()
		err := s.Run(ctx, l)
		res := ScenarioResult{Name: s.Name, Passed: err == nil, Duration: time.Since(began)}
		if err != nil {
			res.Error = err.Error()
			logger.Warn("scenario failed", "scenario", s.Name, "error", err)
		} else {
			logger.Debug("scenario passed", "scenario", s.Name)
		}
		results = append(results, res)
	}
	l.Reset()
	return results
}
