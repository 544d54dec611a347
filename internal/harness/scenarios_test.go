package harness

import (
	"context"
	"strings"
	"testing"

	"github.com/Iron-Ham/borrowledger/internal/ledger"
	"github.com/Iron-Ham/borrowledger/internal/logging"
)

func TestRunScenarios(t *testing.T) {
	for _, opts := range [][]ledger.Option{
		nil,
		{ledger.WithLock(ledger.LockSpin), ledger.WithShards(8)},
	} {
		l := ledger.New(opts...)
		results := RunScenarios(context.Background(), l, logging.NopLogger())

		if len(results) != len(Scenarios()) {
			t.Fatalf("got %d results, want %d", len(results), len(Scenarios()))
		}
		for _, r := range results {
			if !r.Passed {
				t.Errorf("scenario %s failed: %s", r.Name, r.Error)
			}
		}
		if l.Len() != 0 {
			t.Errorf("ledger has %d entries after scenarios", l.Len())
		}
	}
}

// leakyLedger never forgets a shared borrow.
type leakyLedger struct {
	*ledger.Ledger
}

func (l *leakyLedger) UnborrowShared(a ledger.Addr) (ledger.Release, error) {
	return ledger.PartiallyReleased, nil
}

func TestRunScenariosReportsFailures(t *testing.T) {
	results := RunScenarios(context.Background(), &leakyLedger{Ledger: ledger.New()}, logging.NopLogger())

	failed := map[string]string{}
	for _, r := range results {
		if !r.Passed {
			failed[r.Name] = r.Error
		}
	}
	for _, name := range []string{"shared-release-steps", "release-mismatch"} {
		msg, ok := failed[name]
		if !ok {
			t.Errorf("scenario %s passed against a broken ledger", name)
			continue
		}
		if !strings.Contains(msg, ErrInvariantViolated.Error()) {
			t.Errorf("scenario %s error %q does not mention the violation", name, msg)
		}
	}
	if _, ok := failed["shared-borrow"]; ok {
		t.Error("shared-borrow should not depend on releases")
	}
}
