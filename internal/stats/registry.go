package stats

import "sync"

// StreamSnapshot holds the current reducer outputs for both phases of
// one stream.
type StreamSnapshot struct {
	PhaseA ChannelSnapshot
	PhaseB ChannelSnapshot
}

// Registry owns one (phase A, phase B) channel set pair per stream
// name. Pairs are created lazily on first sight of a stream and never
// removed; the registry grows for the lifetime of the process.
//
// Safe for one concurrent writer (Apply) plus any number of snapshot
// readers.
type Registry struct {
	mu       sync.RWMutex
	streams  map[string]*streamChannels
	capacity int
}

type streamChannels struct {
	phaseA *ChannelSet
	phaseB *ChannelSet
}

// NewRegistry creates an empty registry whose buckets hold capacity
// samples each.
func NewRegistry(capacity int) *Registry {
	return &Registry{
		streams:  make(map[string]*streamChannels),
		capacity: capacity,
	}
}

// Apply routes a validated two-phase reading to the stream's channel
// sets, creating them on first sight.
func (r *Registry) Apply(name string, reading TwoPhaseReading) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sc, ok := r.streams[name]
	if !ok {
		sc = &streamChannels{
			phaseA: NewChannelSet(r.capacity),
			phaseB: NewChannelSet(r.capacity),
		}
		r.streams[name] = sc
	}
	sc.phaseA.Apply(reading.PhaseA)
	sc.phaseB.Apply(reading.PhaseB)
}

// SnapshotFor returns the current reducer outputs for a stream, or
// ok=false if the stream has never been seen. A miss means "nothing
// to export yet"; no empty entry is created.
func (r *Registry) SnapshotFor(name string) (StreamSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sc, ok := r.streams[name]
	if !ok {
		return StreamSnapshot{}, false
	}
	return StreamSnapshot{
		PhaseA: sc.phaseA.Snapshot(),
		PhaseB: sc.phaseB.Snapshot(),
	}, true
}

// Snapshot returns current reducer outputs for every known stream.
func (r *Registry) Snapshot() map[string]StreamSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]StreamSnapshot, len(r.streams))
	for name, sc := range r.streams {
		out[name] = StreamSnapshot{
			PhaseA: sc.phaseA.Snapshot(),
			PhaseB: sc.phaseB.Snapshot(),
		}
	}
	return out
}

// Streams returns the names of all streams seen so far.
func (r *Registry) Streams() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.streams))
	for name := range r.streams {
		names = append(names, name)
	}
	return names
}

// Len returns the number of streams seen so far.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.streams)
}
