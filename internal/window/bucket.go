// Package window provides fixed-capacity sliding windows of numeric
// samples with latest/peak/trough/average reducers.
//
// A Bucket holds the most recent N samples of one measurement channel
// (default 300, i.e. 5 minutes of data at 60 Hz). Pushing past capacity
// evicts the oldest sample. Reducers are linear scans over the window;
// at a few hundred samples that is cheaper than maintaining incremental
// extrema across evictions.
//
// Not safe for concurrent use. Callers that share buckets between an
// ingest path and a snapshot reader (see internal/stats) must provide
// their own locking.
package window

import "math"

// DefaultCapacity is the number of samples retained per bucket:
// 5 minutes at 60 frames per second.
const DefaultCapacity = 60 * 5

// Bucket is a fixed-capacity FIFO window of float64 samples.
//
// The zero value is not usable; create buckets with NewBucket.
type Bucket struct {
	samples  []float64
	writeIdx int // next write position once the ring is full
	capacity int
}

// NewBucket creates an empty bucket holding at most capacity samples.
// A capacity < 1 falls back to DefaultCapacity.
func NewBucket(capacity int) *Bucket {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Bucket{
		samples:  make([]float64, 0, capacity),
		capacity: capacity,
	}
}

// Push appends a sample, evicting the oldest if the window is full.
// Always succeeds.
func (b *Bucket) Push(v float64) {
	if len(b.samples) < b.capacity {
		b.samples = append(b.samples, v)
		return
	}
	b.samples[b.writeIdx] = v
	b.writeIdx = (b.writeIdx + 1) % b.capacity
}

// Len returns the number of samples currently retained.
func (b *Bucket) Len() int {
	return len(b.samples)
}

// Capacity returns the maximum number of samples retained.
func (b *Bucket) Capacity() int {
	return b.capacity
}

// Latest returns the most recently pushed sample, or 0 if the bucket
// has never been pushed to. Use Len (or Snapshot.Samples) to tell a
// real zero reading from the empty case.
func (b *Bucket) Latest() float64 {
	n := len(b.samples)
	if n == 0 {
		return 0
	}
	if n < b.capacity {
		return b.samples[n-1]
	}
	// Ring is full: the newest sample sits just before the write index.
	return b.samples[(b.writeIdx+b.capacity-1)%b.capacity]
}

// Peak returns the maximum sample in the window, or -Inf on an empty
// bucket.
func (b *Bucket) Peak() float64 {
	peak := math.Inf(-1)
	for _, v := range b.samples {
		if v > peak {
			peak = v
		}
	}
	return peak
}

// Trough returns the minimum sample in the window, or +Inf on an empty
// bucket.
func (b *Bucket) Trough() float64 {
	trough := math.Inf(1)
	for _, v := range b.samples {
		if v < trough {
			trough = v
		}
	}
	return trough
}

// Average returns the arithmetic mean of the window, or NaN on an
// empty bucket.
func (b *Bucket) Average() float64 {
	if len(b.samples) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range b.samples {
		sum += v
	}
	return sum / float64(len(b.samples))
}

// Values returns the window contents oldest-first. The returned slice
// is a copy.
func (b *Bucket) Values() []float64 {
	n := len(b.samples)
	out := make([]float64, 0, n)
	if n < b.capacity {
		return append(out, b.samples...)
	}
	out = append(out, b.samples[b.writeIdx:]...)
	return append(out, b.samples[:b.writeIdx]...)
}

// Snapshot holds the four reducer outputs at a point in time.
// Samples == 0 means the bucket has no data yet; the reducer fields
// hold their empty sentinels (-Inf/+Inf/NaN/0) and should not be
// exported.
type Snapshot struct {
	Latest  float64
	Peak    float64
	Trough  float64
	Average float64
	Samples int
}

// Snapshot reduces the current window into a Snapshot.
func (b *Bucket) Snapshot() Snapshot {
	return Snapshot{
		Latest:  b.Latest(),
		Peak:    b.Peak(),
		Trough:  b.Trough(),
		Average: b.Average(),
		Samples: len(b.samples),
	}
}
