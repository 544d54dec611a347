package harness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Iron-Ham/borrowledger/internal/ledger"
	"github.com/Iron-Ham/borrowledger/internal/logging"
	"github.com/Iron-Ham/borrowledger/internal/metrics"
)

func TestWorkerAddrDisjoint(t *testing.T) {
	cfg := StressConfig{Workers: 4, AddressesPerWorker: 8, Cycles: 1}
	seen := make(map[ledger.Addr]int)
	for w := 0; w < cfg.Workers; w++ {
		for i := 0; i < cfg.AddressesPerWorker; i++ {
			a := workerAddr(cfg, w, i)
			if owner, ok := seen[a]; ok {
				t.Fatalf("address %s shared by workers %d and %d", a, owner, w)
			}
			seen[a] = w
		}
	}
}

func TestRunStress(t *testing.T) {
	tests := []struct {
		name string
		opts []ledger.Option
		cfg  StressConfig
	}{
		{"mutex", nil, StressConfig{Workers: 8, AddressesPerWorker: 4, Cycles: 500}},
		{"spin", []ledger.Option{ledger.WithLock(ledger.LockSpin)}, StressConfig{Workers: 8, AddressesPerWorker: 4, Cycles: 500}},
		{"sharded", []ledger.Option{ledger.WithShards(32)}, StressConfig{Workers: 16, AddressesPerWorker: 16, Cycles: 500}},
		{"hold", nil, StressConfig{Workers: 2, AddressesPerWorker: 2, Cycles: 20, Hold: time.Microsecond}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := ledger.New(tt.opts...)
			res, err := RunStress(context.Background(), l, tt.cfg, logging.NopLogger())
			if err != nil {
				t.Fatalf("RunStress() error = %v", err)
			}
			if res.Remaining != 0 || l.Len() != 0 {
				t.Errorf("Remaining = %d, Len() = %d, want 0", res.Remaining, l.Len())
			}
			if res.Operations == 0 {
				t.Error("Operations = 0")
			}
		})
	}
}

func TestRunStressInstrumented(t *testing.T) {
	rec := metrics.NewRecorder()
	l := metrics.Instrument(ledger.New(), rec)
	cfg := StressConfig{Workers: 2, AddressesPerWorker: 2, Cycles: 4}

	if _, err := RunStress(context.Background(), l, cfg, logging.NopLogger()); err != nil {
		t.Fatalf("RunStress() error = %v", err)
	}

	snap, err := rec.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	// Each worker runs two shared and two exclusive cycles.
	if got := snap.Borrows["exclusive/granted"]; got != 4 {
		t.Errorf("exclusive/granted = %v, want 4", got)
	}
	if got := snap.Releases["shared/full"]; got != 4 {
		t.Errorf("shared/full = %v, want 4", got)
	}
}

func TestRunStressDetectsLeak(t *testing.T) {
	l := ledger.New()
	l.TryBorrowExclusive(0xdead)

	_, err := RunStress(context.Background(), l, StressConfig{Workers: 1, AddressesPerWorker: 1, Cycles: 2}, logging.NopLogger())
	if !errors.Is(err, ErrInvariantViolated) {
		t.Errorf("RunStress() error = %v, want %v", err, ErrInvariantViolated)
	}
}

func TestRunStressCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunStress(ctx, ledger.New(), StressConfig{Workers: 2, AddressesPerWorker: 1, Cycles: 10}, logging.NopLogger())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RunStress() error = %v, want %v", err, context.Canceled)
	}
}

func TestRunStressInvalidConfig(t *testing.T) {
	if _, err := RunStress(context.Background(), ledger.New(), StressConfig{}, logging.NopLogger()); err == nil {
		t.Error("RunStress() accepted an empty config")
	}
}
