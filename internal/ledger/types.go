package ledger

import (
	"errors"
	"fmt"
)

// ErrReleaseMismatch is returned when a release does not correspond to any
// borrow of that kind currently recorded for the address.
var ErrReleaseMismatch = errors.New("release does not match recorded borrow")

// Addr is the identity of a tracked resource: the bit pattern of a pointer.
// It is only ever compared and hashed, never dereferenced.
type Addr uintptr

// String formats the address in hex.
func (a Addr) String() string {
	return fmt.Sprintf("%#x", uintptr(a))
}

// Kind identifies a borrow kind or, for a recorded state, what the address is
// currently held as.
type Kind int

const (
	// KindFree means no borrow is recorded.
	KindFree Kind = iota
	// KindShared is a shared borrow.
	KindShared
	// KindExclusive is an exclusive borrow.
	KindExclusive
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindFree:
		return "free"
	case KindShared:
		return "shared"
	case KindExclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

// Release reports how far a successful shared release went.
type Release int

const (
	// NotReleased accompanies a mismatch error; nothing changed.
	NotReleased Release = iota
	// PartiallyReleased means other shared borrows remain.
	PartiallyReleased
	// FullyReleased means the address returned to Free.
	FullyReleased
)

// String returns a short description of the release outcome.
func (r Release) String() string {
	switch r {
	case NotReleased:
		return "not released"
	case PartiallyReleased:
		return "partially released"
	case FullyReleased:
		return "fully released"
	default:
		return "unknown"
	}
}

// MismatchError describes a release that found the address free or held
// under the other kind.
type MismatchError struct {
	Addr  Addr // Address passed to the release
	Want  Kind // Kind the caller tried to release
	Found Kind // Kind recorded in the ledger at the time
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: unborrow %s of %s, ledger has it %s",
		ErrReleaseMismatch, e.Want, e.Addr, e.Found)
}

// Unwrap makes errors.Is(err, ErrReleaseMismatch) hold.
func (e *MismatchError) Unwrap() error {
	return ErrReleaseMismatch
}

// LockKind selects the mutual-exclusion primitive guarding each shard.
type LockKind string

const (
	// LockMutex uses sync.Mutex.
	LockMutex LockKind = "mutex"
	// LockSpin busy-waits with a compare-and-swap loop.
	LockSpin LockKind = "spin"
)

// ValidLockKinds returns the accepted lock kind names.
func ValidLockKinds() []string {
	return []string{string(LockMutex), string(LockSpin)}
}

// MaxShards bounds the number of shards a ledger may be split into.
const MaxShards = 256

// Option configures a Ledger.
type Option func(*options)

type options struct {
	lock   LockKind
	shards int
}

// WithLock sets the lock primitive. Unknown kinds fall back to LockMutex.
func WithLock(kind LockKind) Option {
	return func(o *options) {
		o.lock = kind
	}
}

// WithShards splits the store into n independently locked shards. n is
// rounded up to a power of two and clamped to [1, MaxShards].
func WithShards(n int) Option {
	return func(o *options) {
		o.shards = n
	}
}
