package stats

import (
	"sync"

	"github.com/pqstream/pqstream/internal/window"
)

// ThreePhaseTotals are the frame-wide power sums for one finalized
// frame: real and reactive power summed across every two-phase entry
// in the frame, per local phase.
type ThreePhaseTotals struct {
	RealA     float64
	ReactiveA float64
	RealB     float64
	ReactiveB float64
}

// Add accumulates one entry's contribution into the totals.
func (t *ThreePhaseTotals) Add(r TwoPhaseReading) {
	t.RealA += r.PhaseA.RealPower
	t.ReactiveA += r.PhaseA.ReactivePower
	t.RealB += r.PhaseB.RealPower
	t.ReactiveB += r.PhaseB.ReactivePower
}

// RollupSnapshot holds the reducer outputs of one rollup series.
type RollupSnapshot struct {
	RealA     window.Snapshot
	RealB     window.Snapshot
	ReactiveA window.Snapshot
	ReactiveB window.Snapshot
}

// ThreePhase maintains the combined three-phase power windows. Rollups
// are keyed by the ingest subscription topic, not by stream name:
// every stream arriving on one subscription contributes to a single
// rollup series. That keying is load-bearing for existing dashboards.
//
// Safe for one concurrent writer plus any number of snapshot readers.
type ThreePhase struct {
	mu       sync.RWMutex
	rollups  map[string]*rollupBuckets
	capacity int
}

type rollupBuckets struct {
	realA     *window.Bucket
	realB     *window.Bucket
	reactiveA *window.Bucket
	reactiveB *window.Bucket
}

// NewThreePhase creates empty rollup state whose buckets hold
// capacity samples each.
func NewThreePhase(capacity int) *ThreePhase {
	return &ThreePhase{
		rollups:  make(map[string]*rollupBuckets),
		capacity: capacity,
	}
}

// Apply pushes one frame's totals into the rollup windows for key,
// creating them on first sight. Called exactly once per frame, after
// all per-entry registry applies.
func (t *ThreePhase) Apply(key string, totals ThreePhaseTotals) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rb, ok := t.rollups[key]
	if !ok {
		rb = &rollupBuckets{
			realA:     window.NewBucket(t.capacity),
			realB:     window.NewBucket(t.capacity),
			reactiveA: window.NewBucket(t.capacity),
			reactiveB: window.NewBucket(t.capacity),
		}
		t.rollups[key] = rb
	}
	rb.realA.Push(totals.RealA)
	rb.realB.Push(totals.RealB)
	rb.reactiveA.Push(totals.ReactiveA)
	rb.reactiveB.Push(totals.ReactiveB)
}

// SnapshotFor returns the rollup reducer outputs for key, or ok=false
// if no frame has been applied under that key.
func (t *ThreePhase) SnapshotFor(key string) (RollupSnapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rb, ok := t.rollups[key]
	if !ok {
		return RollupSnapshot{}, false
	}
	return rb.snapshot(), true
}

// Snapshot returns reducer outputs for every rollup key.
func (t *ThreePhase) Snapshot() map[string]RollupSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]RollupSnapshot, len(t.rollups))
	for key, rb := range t.rollups {
		out[key] = rb.snapshot()
	}
	return out
}

func (rb *rollupBuckets) snapshot() RollupSnapshot {
	return RollupSnapshot{
		RealA:     rb.realA.Snapshot(),
		RealB:     rb.realB.Snapshot(),
		ReactiveA: rb.reactiveA.Snapshot(),
		ReactiveB: rb.reactiveB.Snapshot(),
	}
}
