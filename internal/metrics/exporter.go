package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pqstream/pqstream/internal/stats"
	"github.com/pqstream/pqstream/internal/window"
)

// Exporter publishes channel and rollup snapshots to the gauge table.
// The ingest path calls UpdateStream/UpdateRollup after each frame;
// scrapes read whatever was last published.
//
// Statistics with zero samples are skipped, so a series appears only
// once its bucket holds data. Dashboards see an absent series, never
// a ±Inf or NaN sentinel.
type Exporter struct {
	gauges *GaugeSet
}

// NewExporter builds the gauge table on reg and returns an exporter
// over it.
func NewExporter(reg prometheus.Registerer) *Exporter {
	return &Exporter{gauges: NewGaugeSet(reg)}
}

// UpdateStream publishes both phase snapshots of one stream.
func (e *Exporter) UpdateStream(stream string, snap stats.StreamSnapshot) {
	e.updateChannels(stream, "a", snap.PhaseA)
	e.updateChannels(stream, "b", snap.PhaseB)
}

func (e *Exporter) updateChannels(stream, phase string, snap stats.ChannelSnapshot) {
	for channel, s := range snap {
		e.setAll(channel, stream, phase, s)
	}
}

// UpdateRollup publishes one rollup key's three-phase snapshots. The
// rollup key occupies the stream label.
func (e *Exporter) UpdateRollup(key string, snap stats.RollupSnapshot) {
	e.setAll(RollupRealPower, key, "a", snap.RealA)
	e.setAll(RollupRealPower, key, "b", snap.RealB)
	e.setAll(RollupReactivePower, key, "a", snap.ReactiveA)
	e.setAll(RollupReactivePower, key, "b", snap.ReactiveB)
}

func (e *Exporter) setAll(family, stream, phase string, s window.Snapshot) {
	if s.Samples == 0 {
		return
	}
	e.gauges.Set(family, "latest", stream, phase, s.Latest)
	e.gauges.Set(family, "peak", stream, phase, s.Peak)
	e.gauges.Set(family, "trough", stream, phase, s.Trough)
	e.gauges.Set(family, "average", stream, phase, s.Average)
}
