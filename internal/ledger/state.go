package ledger

// state is the packed per-address word. The zero value is Free and is never
// stored. Exclusive is 1; Shared(n) is n<<1, so the low bit doubles as the
// exclusive tag and the remaining bits hold the shared count.
type state uintptr

const (
	stateFree      state = 0
	stateExclusive state = 1
	sharedUnit     state = 2

	// sharedMax is the largest representable Shared(n).
	sharedMax state = ^state(0) &^ stateExclusive
)

func (s state) isExclusive() bool {
	return s == stateExclusive
}

func (s state) isShared() bool {
	return s != stateFree && s != stateExclusive
}

// sharedCount returns n for Shared(n) and 0 otherwise.
func (s state) sharedCount() int {
	if !s.isShared() {
		return 0
	}
	return int(s >> 1)
}

func (s state) kind() Kind {
	switch {
	case s == stateFree:
		return KindFree
	case s.isExclusive():
		return KindExclusive
	default:
		return KindShared
	}
}

// State is a read-only view of one address's borrow state.
type State struct {
	Kind   Kind
	Shared int // Outstanding shared borrows; 0 unless Kind is KindShared
}

func (s state) view() State {
	return State{Kind: s.kind(), Shared: s.sharedCount()}
}
