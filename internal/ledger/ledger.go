package ledger

import "sort"

// Ledger records which addresses are borrowed and how.
// It is safe for concurrent use; see the package documentation.
type Ledger struct {
	store *store
}

// New creates an empty Ledger.
func New(opts ...Option) *Ledger {
	o := options{lock: LockMutex, shards: 1}
	for _, opt := range opts {
		opt(&o)
	}
	return &Ledger{store: newStore(o)}
}

// Shards returns the number of independently locked shards.
func (l *Ledger) Shards() int {
	return len(l.store.shards)
}

// TryBorrowShared records a shared borrow of a. It returns false, leaving the
// ledger unchanged, only when a is held exclusively or its shared count is
// already at the largest value the state word can hold.
func (l *Ledger) TryBorrowShared(a Addr) bool {
	s := l.store.shardFor(a)
	s.mu.Lock()
	ok := borrowSharedLocked(s, a)
	s.mu.Unlock()
	return ok
}

func borrowSharedLocked(s *shard, a Addr) bool {
	cur := s.get(a)
	if cur.isExclusive() || cur == sharedMax {
		return false
	}
	s.set(a, cur+sharedUnit)
	return true
}

// TryBorrowExclusive records an exclusive borrow of a. It succeeds only when a
// is Free; any outstanding borrow, shared or exclusive, refuses it.
func (l *Ledger) TryBorrowExclusive(a Addr) bool {
	s := l.store.shardFor(a)
	s.mu.Lock()
	ok := borrowExclusiveLocked(s, a)
	s.mu.Unlock()
	return ok
}

func borrowExclusiveLocked(s *shard, a Addr) bool {
	if s.get(a) != stateFree {
		return false
	}
	s.set(a, stateExclusive)
	return true
}

// UnborrowShared drops one shared borrow of a. It returns FullyReleased when
// that was the last one and PartiallyReleased otherwise. If a is Free or held
// exclusively it returns a *MismatchError and changes nothing.
func (l *Ledger) UnborrowShared(a Addr) (Release, error) {
	s := l.store.shardFor(a)
	s.mu.Lock()
	rel, found := unborrowSharedLocked(s, a)
	s.mu.Unlock()

	if rel == NotReleased {
		return NotReleased, &MismatchError{Addr: a, Want: KindShared, Found: found}
	}
	return rel, nil
}

// unborrowSharedLocked returns the release outcome and, on mismatch, the kind
// that was found instead.
func unborrowSharedLocked(s *shard, a Addr) (Release, Kind) {
	cur := s.get(a)
	switch {
	case !cur.isShared():
		return NotReleased, cur.kind()
	case cur == sharedUnit:
		s.remove(a)
		return FullyReleased, KindShared
	default:
		s.set(a, cur-sharedUnit)
		return PartiallyReleased, KindShared
	}
}

// UnborrowExclusive drops the exclusive borrow of a. If a is not held
// exclusively it returns a *MismatchError and changes nothing.
func (l *Ledger) UnborrowExclusive(a Addr) error {
	s := l.store.shardFor(a)
	s.mu.Lock()
	found := unborrowExclusiveLocked(s, a)
	s.mu.Unlock()

	if found != KindExclusive {
		return &MismatchError{Addr: a, Want: KindExclusive, Found: found}
	}
	return nil
}

func unborrowExclusiveLocked(s *shard, a Addr) Kind {
	cur := s.get(a)
	if cur.isExclusive() {
		s.remove(a)
	}
	return cur.kind()
}

// IsBorrowedShared reports whether a has at least one shared borrow.
func (l *Ledger) IsBorrowedShared(a Addr) bool {
	return l.load(a).isShared()
}

// IsBorrowedExclusive reports whether a is borrowed exclusively.
func (l *Ledger) IsBorrowedExclusive(a Addr) bool {
	return l.load(a).isExclusive()
}

// IsBorrowed reports whether a is borrowed in any way.
func (l *Ledger) IsBorrowed(a Addr) bool {
	return l.load(a) != stateFree
}

// SharedBorrowCount returns the number of outstanding shared borrows of a,
// or 0 when a is Free or held exclusively.
func (l *Ledger) SharedBorrowCount(a Addr) int {
	return l.load(a).sharedCount()
}

// State returns a snapshot of a's borrow state.
func (l *Ledger) State(a Addr) State {
	return l.load(a).view()
}

func (l *Ledger) load(a Addr) state {
	s := l.store.shardFor(a)
	s.mu.Lock()
	cur := s.get(a)
	s.mu.Unlock()
	return cur
}

// Len returns the number of addresses currently borrowed. All shards are
// locked together, so the count is consistent across shards.
func (l *Ledger) Len() int {
	l.store.lockAll()
	defer l.store.unlockAll()

	n := 0
	for i := range l.store.shards {
		n += len(l.store.shards[i].entries)
	}
	return n
}

// Entry is one borrowed address and its state.
type Entry struct {
	Addr  Addr
	State State
}

// Entries returns every borrowed address sorted by address.
func (l *Ledger) Entries() []Entry {
	l.store.lockAll()
	var entries []Entry
	for i := range l.store.shards {
		for a, st := range l.store.shards[i].entries {
			entries = append(entries, Entry{Addr: a, State: st.view()})
		}
	}
	l.store.unlockAll()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Addr < entries[j].Addr })
	return entries
}

// Reset forgets every borrow. It is meant for isolating test and benchmark
// cases and must not be used to paper over unbalanced borrows in production.
func (l *Ledger) Reset() {
	l.store.lockAll()
	defer l.store.unlockAll()

	for i := range l.store.shards {
		clear(l.store.shards[i].entries)
	}
}
