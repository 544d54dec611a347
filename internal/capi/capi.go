// Package capi is the flat, code-returning surface of the process-wide borrow
// ledger. Every function takes and returns plain values so that it can be
// exported across a C boundary unchanged: addresses are uintptr, results are
// small integer codes, and no panic ever escapes.
//
// All functions lazily initialize the ledger, so calling Init first is
// recommended but not required.
package capi

import (
	"github.com/Iron-Ham/borrowledger/internal/ledger"
)

// Version identifies the semantics of this operation set. Bump it whenever
// the meaning of a result changes, not only when signatures do.
const Version uint = 3

// Code is the tri-state result of a boundary call.
type Code int32

const (
	// OkFalse means the call succeeded and its answer is false, or a borrow
	// was refused because of contention.
	OkFalse Code = 0
	// OkTrue means the call succeeded and its answer is true.
	OkTrue Code = 1
	// Err means the call does not match the ledger's state: a release with
	// no corresponding borrow. Callers should treat it as fatal.
	Err Code = -1
)

// String returns the name of the code.
func (c Code) String() string {
	switch c {
	case OkFalse:
		return "ok-false"
	case OkTrue:
		return "ok-true"
	case Err:
		return "err"
	default:
		return "unknown"
	}
}

func boolCode(b bool) Code {
	if b {
		return OkTrue
	}
	return OkFalse
}

// Init initializes the process-wide ledger. Repeated calls are no-ops.
func Init() {
	ledger.Init()
}

// APIVersion returns Version.
func APIVersion() uint {
	return Version
}

// recoverAs turns a panic into code. It must be deferred directly.
func recoverAs(code *Code) {
	if r := recover(); r != nil {
		*code = Err
	}
}

// TryBorrowShared returns OkTrue when a shared borrow of addr was recorded
// and OkFalse when addr is held exclusively.
func TryBorrowShared(addr uintptr) (code Code) {
	defer recoverAs(&code)
	return boolCode(ledger.Default().TryBorrowShared(ledger.Addr(addr)))
}

// TryBorrowExclusive returns OkTrue when an exclusive borrow of addr was
// recorded and OkFalse when addr is borrowed in any way.
func TryBorrowExclusive(addr uintptr) (code Code) {
	defer recoverAs(&code)
	return boolCode(ledger.Default().TryBorrowExclusive(ledger.Addr(addr)))
}

// UnborrowShared returns OkTrue when the last shared borrow of addr was
// released, OkFalse when other shared borrows remain, and Err when addr was
// free or held exclusively.
func UnborrowShared(addr uintptr) (code Code) {
	defer recoverAs(&code)
	rel, err := ledger.Default().UnborrowShared(ledger.Addr(addr))
	if err != nil {
		return Err
	}
	return boolCode(rel == ledger.FullyReleased)
}

// UnborrowExclusive returns OkTrue when the exclusive borrow of addr was
// released and Err otherwise.
func UnborrowExclusive(addr uintptr) (code Code) {
	defer recoverAs(&code)
	if err := ledger.Default().UnborrowExclusive(ledger.Addr(addr)); err != nil {
		return Err
	}
	return OkTrue
}

// IsBorrowedShared returns OkTrue when addr has shared borrows.
func IsBorrowedShared(addr uintptr) (code Code) {
	defer recoverAs(&code)
	return boolCode(ledger.Default().IsBorrowedShared(ledger.Addr(addr)))
}

// IsBorrowedExclusive returns OkTrue when addr is borrowed exclusively.
func IsBorrowedExclusive(addr uintptr) (code Code) {
	defer recoverAs(&code)
	return boolCode(ledger.Default().IsBorrowedExclusive(ledger.Addr(addr)))
}

// IsBorrowed returns OkTrue when addr is borrowed in any way.
func IsBorrowed(addr uintptr) (code Code) {
	defer recoverAs(&code)
	return boolCode(ledger.Default().IsBorrowed(ledger.Addr(addr)))
}

// SharedBorrowCount returns the number of shared borrows of addr, 0 when it
// is free or held exclusively.
func SharedBorrowCount(addr uintptr) (n uint) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	return uint(ledger.Default().SharedBorrowCount(ledger.Addr(addr)))
}

// ResetForTesting empties the process-wide ledger. It is not part of the
// stable surface and is not exported to C.
func ResetForTesting() {
	ledger.Default().Reset()
}
