// Package metrics provides Prometheus export for the power-quality
// statistics, ingest health instrumentation, and the scrape endpoint.
//
// Gauge families are built from a data-driven (family, statistic)
// table iterated at startup, and registered on an explicit registry
// passed in by the caller. Nothing in this package touches the
// process-wide default registry.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pqstream/pqstream/internal/stats"
)

// Statistics exported for every channel and rollup family, in the
// order they appear in the metric name suffix.
var Statistics = []string{"latest", "peak", "trough", "average"}

var statisticHelp = map[string]string{
	"latest":  "Most recent",
	"peak":    "Peak",
	"trough":  "Trough",
	"average": "Average",
}

// Rollup metric families. Both are labeled like the per-channel
// families; the stream label carries the rollup key (the ingest
// subscription topic).
const (
	RollupRealPower     = "real_power_three_phase"
	RollupReactivePower = "reactive_power_three_phase"
)

// GaugeSet holds every exported gauge family, keyed by
// "<family>_<statistic>".
type GaugeSet struct {
	families map[string]*prometheus.GaugeVec
}

// NewGaugeSet builds and registers the full gauge table: four
// statistics for each of the nine measurement channels plus the two
// three-phase rollup families, all labeled {stream, phase}.
func NewGaugeSet(reg prometheus.Registerer) *GaugeSet {
	g := &GaugeSet{families: make(map[string]*prometheus.GaugeVec)}

	rollups := []string{RollupRealPower, RollupReactivePower}
	for _, family := range append(append([]string{}, stats.Channels...), rollups...) {
		for _, stat := range Statistics {
			name := family + "_" + stat
			vec := prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: name,
					Help: fmt.Sprintf("%s windowed %s", statisticHelp[stat], family),
				},
				[]string{"stream", "phase"},
			)
			reg.MustRegister(vec)
			g.families[name] = vec
		}
	}
	return g
}

// Set updates one gauge: family and statistic select the vec, stream
// and phase are the label values.
func (g *GaugeSet) Set(family, stat, stream, phase string, v float64) {
	vec, ok := g.families[family+"_"+stat]
	if !ok {
		return
	}
	vec.WithLabelValues(stream, phase).Set(v)
}

// Len returns the number of registered gauge families.
func (g *GaugeSet) Len() int {
	return len(g.families)
}
