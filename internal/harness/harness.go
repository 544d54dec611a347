// Package harness drives a borrow ledger through benchmark, stress and
// end-to-end scenario runs and reports what it measured.
package harness

import (
	"errors"
	"time"

	"github.com/Iron-Ham/borrowledger/internal/ledger"
)

// ErrInvariantViolated is returned when a run observes a ledger state that
// the borrow rules forbid.
var ErrInvariantViolated = errors.New("ledger invariant violated")

// Ledger is the ledger surface the harness exercises. *ledger.Ledger and
// *metrics.Ledger both satisfy it.
type Ledger interface {
	TryBorrowShared(a ledger.Addr) bool
	TryBorrowExclusive(a ledger.Addr) bool
	UnborrowShared(a ledger.Addr) (ledger.Release, error)
	UnborrowExclusive(a ledger.Addr) error
	IsBorrowedShared(a ledger.Addr) bool
	IsBorrowedExclusive(a ledger.Addr) bool
	IsBorrowed(a ledger.Addr) bool
	SharedBorrowCount(a ledger.Addr) int
	Len() int
	Reset()
}

// probeAddr is the single address used by the track, contention and
// scenario runs. It is never dereferenced.
const probeAddr ledger.Addr = 0x1000

// spin busy-waits for d without yielding the processor.
func spin(d time.Duration) {
	if d <= 0 {
		return
	}
	start := time.Now()
	for time.Since(start) < d {
	}
}
