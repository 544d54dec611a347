package harness

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/gobwas/glob"

	"github.com/Iron-Ham/borrowledger/internal/logging"
)

// TrackCase is one single-goroutine micro benchmark.
type TrackCase struct {
	Name  string
	setup func(l Ledger)
	op    func(l Ledger)
}

var sink bool

// TrackCases returns the micro benchmark suite in run order.
func TrackCases() []TrackCase {
	borrowShared := func(l Ledger) { l.TryBorrowShared(probeAddr) }
	borrowExclusive := func(l Ledger) { l.TryBorrowExclusive(probeAddr) }

	return []TrackCase{
		{Name: "track-shared", op: func(l Ledger) { sink = l.TryBorrowShared(probeAddr) }},
		{Name: "is-tracked-shared-false", op: func(l Ledger) { sink = l.IsBorrowedShared(probeAddr) }},
		{Name: "is-tracked-exclusive-false", op: func(l Ledger) { sink = l.IsBorrowedExclusive(probeAddr) }},
		{Name: "is-tracked-false", op: func(l Ledger) { sink = l.IsBorrowed(probeAddr) }},
		{Name: "is-tracked-shared-true", setup: borrowShared, op: func(l Ledger) { sink = l.IsBorrowedShared(probeAddr) }},
		{Name: "is-tracked-true", setup: borrowShared, op: func(l Ledger) { sink = l.IsBorrowed(probeAddr) }},
		{Name: "is-tracked-exclusive-true", setup: borrowExclusive, op: func(l Ledger) { sink = l.IsBorrowedExclusive(probeAddr) }},
		{Name: "track-untrack-shared", op: func(l Ledger) {
			sink = l.TryBorrowShared(probeAddr)
			_, _ = l.UnborrowShared(probeAddr)
		}},
		{Name: "track-untrack-shared-second-time", setup: borrowShared, op: func(l Ledger) {
			sink = l.TryBorrowShared(probeAddr)
			_, _ = l.UnborrowShared(probeAddr)
		}},
		{Name: "track-untrack-exclusive", op: func(l Ledger) {
			sink = l.TryBorrowExclusive(probeAddr)
			_ = l.UnborrowExclusive(probeAddr)
		}},
	}
}

// TrackResult is the measurement of one TrackCase.
type TrackResult struct {
	Name        string        `json:"name" yaml:"name"`
	Iterations  int           `json:"iterations" yaml:"iterations"`
	Total       time.Duration `json:"total_ns" yaml:"total"`
	NsPerOp     float64       `json:"ns_per_op" yaml:"ns_per_op"`
	AllocsPerOp float64       `json:"allocs_per_op" yaml:"allocs_per_op"`
}

// MatchCases returns the cases whose names match the glob filter. An empty
// filter matches every case.
func MatchCases(cases []TrackCase, filter string) ([]TrackCase, error) {
	if filter == "" {
		return cases, nil
	}
	g, err := glob.Compile(filter)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
	}

	var matched []TrackCase
	for _, c := range cases {
		if g.Match(c.Name) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

// RunTrack runs every case matching filter against l, resetting l before
// and after each case. l must not be shared with other users while this runs.
func RunTrack(ctx context.Context, l Ledger, iterations int, filter string, logger *logging.Logger) ([]TrackResult, error) {
	if iterations < 1 {
		return nil, fmt.Errorf("iterations must be at least 1, got %d", iterations)
	}
	cases, err := MatchCases(TrackCases(), filter)
	if err != nil {
		return nil, err
	}

	results := make([]TrackResult, 0, len(cases))
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := runTrackCase(l, c, iterations)
		logger.Debug("track case finished",
			"case", res.Name,
			"ns_per_op", res.NsPerOp,
			"allocs_per_op", res.AllocsPerOp,
		)
		results = append(results, res)
	}
	return results, nil
}

func runTrackCase(l Ledger, c TrackCase, iterations int) TrackResult {
	l.Reset()
	defer l.Reset()
	if c.setup != nil {
		c.setup(l)
	}

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	start := time.Now()
	for i := 0; i < iterations; i++ {
		c.op(l)
	}
	total := time.Since(start)
	runtime.ReadMemStats(&after)

	return TrackResult{
		Name:        c.Name,
		Iterations:  iterations,
		Total:       total,
		NsPerOp:     float64(total.Nanoseconds()) / float64(iterations),
		AllocsPerOp: float64(after.Mallocs-before.Mallocs) / float64(iterations),
	}
}
