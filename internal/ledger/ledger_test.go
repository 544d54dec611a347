package ledger

import (
	"errors"
	"testing"
)

const testAddr Addr = 0x1000

// newTestLedgers returns one ledger per lock/shard combination so every
// behavioral test covers all store layouts.
func newTestLedgers(t *testing.T) map[string]*Ledger {
	t.Helper()
	return map[string]*Ledger{
		"mutex":          New(),
		"spin":           New(WithLock(LockSpin)),
		"mutex/sharded":  New(WithShards(8)),
		"spin/sharded":   New(WithLock(LockSpin), WithShards(16)),
		"unknown lock":   New(WithLock("bogus")),
		"single sharded": New(WithShards(1)),
	}
}

func checkInvariants(t *testing.T, l *Ledger, a Addr) {
	t.Helper()
	shared := l.IsBorrowedShared(a)
	exclusive := l.IsBorrowedExclusive(a)
	if shared && exclusive {
		t.Fatalf("%s is both shared and exclusive", a)
	}
	if l.IsBorrowed(a) != (shared || exclusive) {
		t.Fatalf("IsBorrowed(%s) = %v, want %v", a, l.IsBorrowed(a), shared || exclusive)
	}
	if !shared && l.SharedBorrowCount(a) != 0 {
		t.Fatalf("SharedBorrowCount(%s) = %d for non-shared address", a, l.SharedBorrowCount(a))
	}
}

func TestNew(t *testing.T) {
	l := New()
	if l.Shards() != 1 {
		t.Errorf("Shards() = %d, want 1", l.Shards())
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
	if l.IsBorrowed(testAddr) {
		t.Error("fresh ledger reports testAddr as borrowed")
	}
}

func TestBorrowShared(t *testing.T) {
	for name, l := range newTestLedgers(t) {
		t.Run(name, func(t *testing.T) {
			if l.IsBorrowedShared(testAddr) || l.IsBorrowedExclusive(testAddr) || l.IsBorrowed(testAddr) {
				t.Fatal("address borrowed before any borrow")
			}
			if n := l.SharedBorrowCount(testAddr); n != 0 {
				t.Fatalf("SharedBorrowCount() = %d, want 0", n)
			}

			if !l.TryBorrowShared(testAddr) {
				t.Fatal("TryBorrowShared() = false on free address")
			}
			if !l.IsBorrowedShared(testAddr) {
				t.Error("IsBorrowedShared() = false after shared borrow")
			}
			if l.IsBorrowedExclusive(testAddr) {
				t.Error("IsBorrowedExclusive() = true after shared borrow")
			}
			if !l.IsBorrowed(testAddr) {
				t.Error("IsBorrowed() = false after shared borrow")
			}
			if n := l.SharedBorrowCount(testAddr); n != 1 {
				t.Errorf("SharedBorrowCount() = %d, want 1", n)
			}
			checkInvariants(t, l, testAddr)
		})
	}
}

func TestBorrowExclusive(t *testing.T) {
	for name, l := range newTestLedgers(t) {
		t.Run(name, func(t *testing.T) {
			if !l.TryBorrowExclusive(testAddr) {
				t.Fatal("TryBorrowExclusive() = false on free address")
			}
			if l.IsBorrowedShared(testAddr) {
				t.Error("IsBorrowedShared() = true after exclusive borrow")
			}
			if !l.IsBorrowedExclusive(testAddr) {
				t.Error("IsBorrowedExclusive() = false after exclusive borrow")
			}
			if !l.IsBorrowed(testAddr) {
				t.Error("IsBorrowed() = false after exclusive borrow")
			}
			if n := l.SharedBorrowCount(testAddr); n != 0 {
				t.Errorf("SharedBorrowCount() = %d, want 0", n)
			}
			checkInvariants(t, l, testAddr)
		})
	}
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(l *Ledger)
		op         func(l *Ledger) (bool, error)
		wantOK     bool
		wantErr    error
		wantState  State
		wantLength int
	}{
		{
			name:       "exclusive refused by shared",
			setup:      func(l *Ledger) { l.TryBorrowShared(testAddr) },
			op:         func(l *Ledger) (bool, error) { return l.TryBorrowExclusive(testAddr), nil },
			wantOK:     false,
			wantState:  State{Kind: KindShared, Shared: 1},
			wantLength: 1,
		},
		{
			name:       "exclusive refused by exclusive",
			setup:      func(l *Ledger) { l.TryBorrowExclusive(testAddr) },
			op:         func(l *Ledger) (bool, error) { return l.TryBorrowExclusive(testAddr), nil },
			wantOK:     false,
			wantState:  State{Kind: KindExclusive},
			wantLength: 1,
		},
		{
			name:       "shared refused by exclusive",
			setup:      func(l *Ledger) { l.TryBorrowExclusive(testAddr) },
			op:         func(l *Ledger) (bool, error) { return l.TryBorrowShared(testAddr), nil },
			wantOK:     false,
			wantState:  State{Kind: KindExclusive},
			wantLength: 1,
		},
		{
			name:       "shared stacks on shared",
			setup:      func(l *Ledger) { l.TryBorrowShared(testAddr) },
			op:         func(l *Ledger) (bool, error) { return l.TryBorrowShared(testAddr), nil },
			wantOK:     true,
			wantState:  State{Kind: KindShared, Shared: 2},
			wantLength: 1,
		},
		{
			name: "unborrow shared of free address",
			op: func(l *Ledger) (bool, error) {
				_, err := l.UnborrowShared(testAddr)
				return false, err
			},
			wantErr:    ErrReleaseMismatch,
			wantState:  State{Kind: KindFree},
			wantLength: 0,
		},
		{
			name:  "unborrow shared of exclusive address",
			setup: func(l *Ledger) { l.TryBorrowExclusive(testAddr) },
			op: func(l *Ledger) (bool, error) {
				_, err := l.UnborrowShared(testAddr)
				return false, err
			},
			wantErr:    ErrReleaseMismatch,
			wantState:  State{Kind: KindExclusive},
			wantLength: 1,
		},
		{
			name: "unborrow exclusive of free address",
			op: func(l *Ledger) (bool, error) {
				return false, l.UnborrowExclusive(testAddr)
			},
			wantErr:    ErrReleaseMismatch,
			wantState:  State{Kind: KindFree},
			wantLength: 0,
		},
		{
			name: "unborrow exclusive of shared address",
			setup: func(l *Ledger) {
				l.TryBorrowShared(testAddr)
				l.TryBorrowShared(testAddr)
			},
			op: func(l *Ledger) (bool, error) {
				return false, l.UnborrowExclusive(testAddr)
			},
			wantErr:    ErrReleaseMismatch,
			wantState:  State{Kind: KindShared, Shared: 2},
			wantLength: 1,
		},
		{
			name:  "unborrow exclusive",
			setup: func(l *Ledger) { l.TryBorrowExclusive(testAddr) },
			op: func(l *Ledger) (bool, error) {
				return true, l.UnborrowExclusive(testAddr)
			},
			wantOK:     true,
			wantState:  State{Kind: KindFree},
			wantLength: 0,
		},
		{
			name:       "borrow unrelated address",
			setup:      func(l *Ledger) { l.TryBorrowExclusive(testAddr + 8) },
			op:         func(l *Ledger) (bool, error) { return l.TryBorrowExclusive(testAddr), nil },
			wantOK:     true,
			wantState:  State{Kind: KindExclusive},
			wantLength: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for name, l := range newTestLedgers(t) {
				if tt.setup != nil {
					tt.setup(l)
				}

				ok, err := tt.op(l)
				if tt.wantErr != nil {
					if !errors.Is(err, tt.wantErr) {
						t.Errorf("[%s] error = %v, want %v", name, err, tt.wantErr)
					}
				} else {
					if err != nil {
						t.Fatalf("[%s] unexpected error: %v", name, err)
					}
					if ok != tt.wantOK {
						t.Errorf("[%s] result = %v, want %v", name, ok, tt.wantOK)
					}
				}

				if got := l.State(testAddr); got != tt.wantState {
					t.Errorf("[%s] State() = %+v, want %+v", name, got, tt.wantState)
				}
				if got := l.Len(); got != tt.wantLength {
					t.Errorf("[%s] Len() = %d, want %d", name, got, tt.wantLength)
				}
				checkInvariants(t, l, testAddr)
			}
		})
	}
}

func TestUnborrowShared(t *testing.T) {
	for name, l := range newTestLedgers(t) {
		t.Run(name, func(t *testing.T) {
			l.TryBorrowShared(testAddr)
			l.TryBorrowShared(testAddr)

			rel, err := l.UnborrowShared(testAddr)
			if err != nil {
				t.Fatalf("UnborrowShared() error: %v", err)
			}
			if rel != PartiallyReleased {
				t.Errorf("first UnborrowShared() = %v, want %v", rel, PartiallyReleased)
			}
			if n := l.SharedBorrowCount(testAddr); n != 1 {
				t.Errorf("SharedBorrowCount() = %d, want 1", n)
			}
			if !l.IsBorrowedShared(testAddr) {
				t.Error("IsBorrowedShared() = false with one borrow left")
			}

			rel, err = l.UnborrowShared(testAddr)
			if err != nil {
				t.Fatalf("UnborrowShared() error: %v", err)
			}
			if rel != FullyReleased {
				t.Errorf("second UnborrowShared() = %v, want %v", rel, FullyReleased)
			}
			if l.IsBorrowed(testAddr) {
				t.Error("IsBorrowed() = true after last release")
			}
			if l.Len() != 0 {
				t.Errorf("Len() = %d, want 0 after last release", l.Len())
			}

			rel, err = l.UnborrowShared(testAddr)
			if !errors.Is(err, ErrReleaseMismatch) {
				t.Errorf("third UnborrowShared() error = %v, want %v", err, ErrReleaseMismatch)
			}
			if rel != NotReleased {
				t.Errorf("third UnborrowShared() = %v, want %v", rel, NotReleased)
			}
		})
	}
}

func TestUnborrowExclusiveTwice(t *testing.T) {
	l := New()
	if !l.TryBorrowExclusive(testAddr) {
		t.Fatal("TryBorrowExclusive() = false on free address")
	}
	if err := l.UnborrowExclusive(testAddr); err != nil {
		t.Fatalf("UnborrowExclusive() error: %v", err)
	}
	if err := l.UnborrowExclusive(testAddr); !errors.Is(err, ErrReleaseMismatch) {
		t.Errorf("second UnborrowExclusive() error = %v, want %v", err, ErrReleaseMismatch)
	}
}

func TestReacquireAfterFree(t *testing.T) {
	l := New()

	l.TryBorrowShared(testAddr)
	if _, err := l.UnborrowShared(testAddr); err != nil {
		t.Fatalf("UnborrowShared() error: %v", err)
	}

	// A freed address behaves exactly like one never seen.
	if !l.TryBorrowExclusive(testAddr) {
		t.Fatal("TryBorrowExclusive() = false after shared borrow was released")
	}
	if err := l.UnborrowExclusive(testAddr); err != nil {
		t.Fatalf("UnborrowExclusive() error: %v", err)
	}
	if !l.TryBorrowShared(testAddr) {
		t.Fatal("TryBorrowShared() = false after exclusive borrow was released")
	}
	if n := l.SharedBorrowCount(testAddr); n != 1 {
		t.Errorf("SharedBorrowCount() = %d, want 1", n)
	}
}

func TestSharedBorrowCountAfterK(t *testing.T) {
	for _, k := range []int{1, 2, 7, 100} {
		l := New()
		for i := 0; i < k; i++ {
			if !l.TryBorrowShared(testAddr) {
				t.Fatalf("TryBorrowShared() #%d = false", i)
			}
		}
		if n := l.SharedBorrowCount(testAddr); n != k {
			t.Errorf("after %d borrows SharedBorrowCount() = %d", k, n)
		}
	}
}

func TestSharedCountSaturates(t *testing.T) {
	l := New()
	l.store.shardFor(testAddr).set(testAddr, sharedMax)
	want := l.SharedBorrowCount(testAddr)

	if l.TryBorrowShared(testAddr) {
		t.Fatal("TryBorrowShared() succeeded at the maximum count")
	}
	if got := l.SharedBorrowCount(testAddr); got != want {
		t.Errorf("SharedBorrowCount() = %d, want unchanged %d", got, want)
	}

	rel, err := l.UnborrowShared(testAddr)
	if err != nil || rel != PartiallyReleased {
		t.Fatalf("UnborrowShared() = %v, %v; want PartiallyReleased", rel, err)
	}
	if !l.TryBorrowShared(testAddr) {
		t.Error("TryBorrowShared() refused below the maximum count")
	}
}

func TestMismatchError(t *testing.T) {
	l := New()
	l.TryBorrowExclusive(testAddr)

	_, err := l.UnborrowShared(testAddr)
	var mismatch *MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("error type = %T, want *MismatchError", err)
	}
	if mismatch.Addr != testAddr {
		t.Errorf("Addr = %s, want %s", mismatch.Addr, testAddr)
	}
	if mismatch.Want != KindShared {
		t.Errorf("Want = %v, want %v", mismatch.Want, KindShared)
	}
	if mismatch.Found != KindExclusive {
		t.Errorf("Found = %v, want %v", mismatch.Found, KindExclusive)
	}

	want := "release does not match recorded borrow: unborrow shared of 0x1000, ledger has it exclusive"
	if mismatch.Error() != want {
		t.Errorf("Error() = %q, want %q", mismatch.Error(), want)
	}
}

func TestEntries(t *testing.T) {
	l := New(WithShards(4))
	l.TryBorrowShared(0x3000)
	l.TryBorrowShared(0x3000)
	l.TryBorrowExclusive(0x1000)
	l.TryBorrowShared(0x2000)

	got := l.Entries()
	want := []Entry{
		{Addr: 0x1000, State: State{Kind: KindExclusive}},
		{Addr: 0x2000, State: State{Kind: KindShared, Shared: 1}},
		{Addr: 0x3000, State: State{Kind: KindShared, Shared: 2}},
	}
	if len(got) != len(want) {
		t.Fatalf("Entries() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Entries()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReset(t *testing.T) {
	for name, l := range newTestLedgers(t) {
		t.Run(name, func(t *testing.T) {
			for i := Addr(0); i < 64; i++ {
				l.TryBorrowShared(0x1000 + i*8)
			}
			l.TryBorrowExclusive(0x9000)

			l.Reset()

			if l.Len() != 0 {
				t.Errorf("Len() = %d after Reset, want 0", l.Len())
			}
			if l.IsBorrowed(0x9000) {
				t.Error("IsBorrowed() = true after Reset")
			}
			if !l.TryBorrowExclusive(0x1000) {
				t.Error("TryBorrowExclusive() = false after Reset")
			}
		})
	}
}

func TestKindAndReleaseStrings(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{KindFree.String(), "free"},
		{KindShared.String(), "shared"},
		{KindExclusive.String(), "exclusive"},
		{Kind(42).String(), "unknown"},
		{NotReleased.String(), "not released"},
		{PartiallyReleased.String(), "partially released"},
		{FullyReleased.String(), "fully released"},
		{Release(9).String(), "unknown"},
		{Addr(0xdead).String(), "0xdead"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("String() = %q, want %q", tt.got, tt.want)
		}
	}
}
