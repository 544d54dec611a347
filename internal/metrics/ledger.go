package metrics

import "github.com/Iron-Ham/borrowledger/internal/ledger"

// Ledger wraps a ledger.Ledger and records every mutating call.
// Queries pass straight through to the embedded ledger.
type Ledger struct {
	*ledger.Ledger
	rec *Recorder
}

// Instrument wraps l so that its borrows and releases are counted by rec.
func Instrument(l *ledger.Ledger, rec *Recorder) *Ledger {
	return &Ledger{Ledger: l, rec: rec}
}

// Recorder returns the recorder counting this ledger.
func (l *Ledger) Recorder() *Recorder {
	return l.rec
}

// TryBorrowShared is ledger.Ledger.TryBorrowShared, counted.
func (l *Ledger) TryBorrowShared(a ledger.Addr) bool {
	ok := l.Ledger.TryBorrowShared(a)
	l.rec.RecordBorrow(ledger.KindShared, ok)
	return ok
}

// TryBorrowExclusive is ledger.Ledger.TryBorrowExclusive, counted.
func (l *Ledger) TryBorrowExclusive(a ledger.Addr) bool {
	ok := l.Ledger.TryBorrowExclusive(a)
	l.rec.RecordBorrow(ledger.KindExclusive, ok)
	return ok
}

// UnborrowShared is ledger.Ledger.UnborrowShared, counted.
func (l *Ledger) UnborrowShared(a ledger.Addr) (ledger.Release, error) {
	rel, err := l.Ledger.UnborrowShared(a)
	l.rec.RecordRelease(ledger.KindShared, rel, err)
	return rel, err
}

// UnborrowExclusive is ledger.Ledger.UnborrowExclusive, counted.
func (l *Ledger) UnborrowExclusive(a ledger.Addr) error {
	err := l.Ledger.UnborrowExclusive(a)
	l.rec.RecordRelease(ledger.KindExclusive, ledger.FullyReleased, err)
	return err
}
