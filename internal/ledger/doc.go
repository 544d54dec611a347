// Package ledger provides a runtime borrow ledger for pointer-identified
// resources.
//
// Native code that borrows memory owned by a foreign runtime cannot have its
// aliasing checked statically. The ledger enforces the rule dynamically: an
// address may carry any number of shared borrows, or exactly one exclusive
// borrow, never both. A conflicting borrow is refused at the moment it is
// attempted instead of turning into silent undefined behavior later.
//
// # Address Identity
//
// Addresses are tracked as [Addr], an opaque integer taken from a pointer's
// bit pattern. The ledger never dereferences an Addr; the memory behind it may
// already be freed. Two equal Addr values always denote the same resource.
//
// # States
//
// Each address is in exactly one of three states:
//   - Free: no entry exists in the store
//   - Shared(n): n >= 1 outstanding shared borrows
//   - Exclusive: one outstanding exclusive borrow
//
// Releasing the last shared borrow removes the entry, so Free is never stored.
//
// # Basic Usage
//
//	l := ledger.New()
//
//	if !l.TryBorrowShared(addr) {
//	    // held exclusively elsewhere, do not touch addr
//	}
//	rel, err := l.UnborrowShared(addr)
//	if errors.Is(err, ledger.ErrReleaseMismatch) {
//	    // caller and ledger disagree; treat as fatal
//	}
//
// A refused borrow is ordinary contention and is reported as false. A release
// that does not match the recorded state is reported as a [*MismatchError]
// wrapping [ErrReleaseMismatch] and leaves the store untouched.
//
// # Lifecycle
//
// [New] builds an independent ledger. [Init] and [Default] manage the
// process-wide instance; Init is idempotent and safe to race. [Ledger.Reset]
// empties a ledger and exists for tests and benchmarks only.
//
// # Thread Safety
//
// Every operation holds the lock of the shard owning its address for the whole
// operation, so operations on one address are linearizable. By default there
// is a single shard and therefore a single global lock. [WithShards] spreads
// addresses over several locks and [WithLock] selects a blocking mutex or a
// spin lock; neither changes the results of any operation.
package ledger
