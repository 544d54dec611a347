package ledger

import (
	"math/bits"
	"sync"
)

// shard is one lock and the part of the address space it guards. The
// get/set/remove primitives assume the caller holds mu; they never interpret
// transitions.
type shard struct {
	mu      sync.Locker
	entries map[Addr]state
}

func (s *shard) get(a Addr) state {
	return s.entries[a]
}

func (s *shard) set(a Addr, st state) {
	s.entries[a] = st
}

func (s *shard) remove(a Addr) {
	delete(s.entries, a)
}

// store maps each address to exactly one shard, so every operation on an
// address is serialized by the same lock.
type store struct {
	shards []shard
	shift  uint // 64 - log2(len(shards)); 64 when there is a single shard
}

func newStore(o options) *store {
	n := normalizeShards(o.shards)
	s := &store{
		shards: make([]shard, n),
		shift:  uint(64 - bits.TrailingZeros(uint(n))),
	}
	for i := range s.shards {
		s.shards[i] = shard{
			mu:      newLocker(o.lock),
			entries: make(map[Addr]state),
		}
	}
	return s
}

// normalizeShards rounds n up to a power of two within [1, MaxShards].
func normalizeShards(n int) int {
	if n <= 1 {
		return 1
	}
	if n > MaxShards {
		return MaxShards
	}
	return 1 << bits.Len(uint(n-1))
}

// shardFor picks a shard by Fibonacci hashing. Pointers are aligned, so the
// low bits alone would leave most shards empty.
func (s *store) shardFor(a Addr) *shard {
	if len(s.shards) == 1 {
		return &s.shards[0]
	}
	h := uint64(a) * 0x9E3779B97F4A7C15
	return &s.shards[h>>s.shift]
}

// lockAll acquires every shard lock in index order.
func (s *store) lockAll() {
	for i := range s.shards {
		s.shards[i].mu.Lock()
	}
}

func (s *store) unlockAll() {
	for i := len(s.shards) - 1; i >= 0; i-- {
		s.shards[i].mu.Unlock()
	}
}
