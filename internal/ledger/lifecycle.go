package ledger

import "sync"

var (
	defaultOnce   sync.Once
	defaultLedger *Ledger
)

// Init constructs the process-wide ledger with opts. Only the first call has
// any effect; it reports whether this call was the one that constructed it.
// Concurrent callers block until construction finishes, so no caller ever
// sees a partially built ledger.
func Init(opts ...Option) bool {
	created := false
	defaultOnce.Do(func() {
		defaultLedger = New(opts...)
		created = true
	})
	return created
}

// Default returns the process-wide ledger, initializing it with default
// options if Init has not run yet.
func Default() *Ledger {
	Init()
	return defaultLedger
}
