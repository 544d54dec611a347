package capi

import "testing"

const testAddr uintptr = 0x1000

func setup(t *testing.T) {
	t.Helper()
	Init()
	ResetForTesting()
	t.Cleanup(ResetForTesting)
}

func TestAPIVersion(t *testing.T) {
	if APIVersion() != Version {
		t.Errorf("APIVersion() = %d, want %d", APIVersion(), Version)
	}
	if Version != 3 {
		t.Errorf("Version = %d, want 3", Version)
	}
}

func TestCodeValues(t *testing.T) {
	tests := []struct {
		code Code
		want int32
		name string
	}{
		{OkFalse, 0, "ok-false"},
		{OkTrue, 1, "ok-true"},
		{Err, -1, "err"},
	}
	for _, tt := range tests {
		if int32(tt.code) != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, int32(tt.code), tt.want)
		}
		if tt.code.String() != tt.name {
			t.Errorf("String() = %q, want %q", tt.code.String(), tt.name)
		}
	}
	if Code(7).String() != "unknown" {
		t.Errorf("Code(7).String() = %q", Code(7).String())
	}
}

// Scenario 1 and 2: shared borrow, then a refused exclusive borrow.
func TestBorrowSharedThenExclusive(t *testing.T) {
	setup(t)

	if got := TryBorrowShared(testAddr); got != OkTrue {
		t.Fatalf("TryBorrowShared() = %v, want %v", got, OkTrue)
	}
	if got := IsBorrowedShared(testAddr); got != OkTrue {
		t.Errorf("IsBorrowedShared() = %v, want %v", got, OkTrue)
	}
	if n := SharedBorrowCount(testAddr); n != 1 {
		t.Errorf("SharedBorrowCount() = %d, want 1", n)
	}

	if got := TryBorrowExclusive(testAddr); got != OkFalse {
		t.Errorf("TryBorrowExclusive() = %v, want %v", got, OkFalse)
	}
	if n := SharedBorrowCount(testAddr); n != 1 {
		t.Errorf("SharedBorrowCount() = %d after refused exclusive, want 1", n)
	}
}

// Scenario 3: stacked shared borrows released one at a time.
func TestUnborrowSharedTwice(t *testing.T) {
	setup(t)

	TryBorrowShared(testAddr)
	if got := TryBorrowShared(testAddr); got != OkTrue {
		t.Fatalf("second TryBorrowShared() = %v, want %v", got, OkTrue)
	}
	if n := SharedBorrowCount(testAddr); n != 2 {
		t.Fatalf("SharedBorrowCount() = %d, want 2", n)
	}

	if got := UnborrowShared(testAddr); got != OkFalse {
		t.Errorf("first UnborrowShared() = %v, want %v (partial)", got, OkFalse)
	}
	if n := SharedBorrowCount(testAddr); n != 1 {
		t.Errorf("SharedBorrowCount() = %d, want 1", n)
	}
	if got := UnborrowShared(testAddr); got != OkTrue {
		t.Errorf("second UnborrowShared() = %v, want %v (full)", got, OkTrue)
	}
	if got := IsBorrowed(testAddr); got != OkFalse {
		t.Errorf("IsBorrowed() = %v, want %v", got, OkFalse)
	}
}

// Scenario 4: exclusive borrow refuses shared, then releases cleanly.
func TestBorrowExclusiveThenShared(t *testing.T) {
	setup(t)

	if got := TryBorrowExclusive(testAddr); got != OkTrue {
		t.Fatalf("TryBorrowExclusive() = %v, want %v", got, OkTrue)
	}
	if got := IsBorrowedExclusive(testAddr); got != OkTrue {
		t.Errorf("IsBorrowedExclusive() = %v, want %v", got, OkTrue)
	}
	if got := TryBorrowShared(testAddr); got != OkFalse {
		t.Errorf("TryBorrowShared() = %v, want %v", got, OkFalse)
	}
	if n := SharedBorrowCount(testAddr); n != 0 {
		t.Errorf("SharedBorrowCount() = %d, want 0", n)
	}
	if got := UnborrowExclusive(testAddr); got != OkTrue {
		t.Errorf("UnborrowExclusive() = %v, want %v", got, OkTrue)
	}
	if got := IsBorrowed(testAddr); got != OkFalse {
		t.Errorf("IsBorrowed() = %v, want %v", got, OkFalse)
	}
}

// Scenario 5 plus the other release mismatches.
func TestReleaseMismatch(t *testing.T) {
	tests := []struct {
		name  string
		setup func()
		call  func(uintptr) Code
	}{
		{name: "unborrow shared never borrowed", call: UnborrowShared},
		{name: "unborrow exclusive never borrowed", call: UnborrowExclusive},
		{
			name:  "unborrow shared held exclusive",
			setup: func() { TryBorrowExclusive(testAddr) },
			call:  UnborrowShared,
		},
		{
			name:  "unborrow exclusive held shared",
			setup: func() { TryBorrowShared(testAddr) },
			call:  UnborrowExclusive,
		},
		{
			name: "unborrow shared after full release",
			setup: func() {
				TryBorrowShared(testAddr)
				UnborrowShared(testAddr)
			},
			call: UnborrowShared,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup(t)
			if tt.setup != nil {
				tt.setup()
			}
			before := IsBorrowed(testAddr)
			count := SharedBorrowCount(testAddr)

			if got := tt.call(testAddr); got != Err {
				t.Errorf("result = %v, want %v", got, Err)
			}
			if IsBorrowed(testAddr) != before || SharedBorrowCount(testAddr) != count {
				t.Error("mismatched release changed the ledger")
			}
		})
	}
}

func TestCallsWorkWithoutExplicitInit(t *testing.T) {
	// Every entry point goes through ledger.Default, which initializes lazily.
	defer ResetForTesting()
	if got := IsBorrowed(0xbeef); got != OkFalse {
		t.Errorf("IsBorrowed() = %v, want %v", got, OkFalse)
	}
}

func TestBoundaryIsAllocationFree(t *testing.T) {
	if raceEnabled {
		t.Skip("race instrumentation allocates")
	}
	setup(t)
	TryBorrowShared(testAddr)

	allocs := testing.AllocsPerRun(100, func() {
		TryBorrowShared(testAddr)
		UnborrowShared(testAddr)
		IsBorrowedShared(testAddr)
		IsBorrowedExclusive(testAddr)
		IsBorrowed(testAddr)
		SharedBorrowCount(testAddr)
	})
	if allocs != 0 {
		t.Errorf("boundary calls allocated %.1f times per run, want 0", allocs)
	}
}

func TestRecoverAs(t *testing.T) {
	code := func() (code Code) {
		defer recoverAs(&code)
		panic("boom")
	}()
	if code != Err {
		t.Errorf("recovered code = %v, want %v", code, Err)
	}
}
