package ledger

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// spinLock is a test-and-set lock. Critical sections in the ledger are a
// single map operation, so waiting callers yield instead of parking.
type spinLock struct {
	held atomic.Bool
}

func (l *spinLock) Lock() {
	for !l.held.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (l *spinLock) Unlock() {
	l.held.Store(false)
}

func newLocker(kind LockKind) sync.Locker {
	if kind == LockSpin {
		return &spinLock{}
	}
	return &sync.Mutex{}
}
