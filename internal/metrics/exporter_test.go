package metrics

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"

	"github.com/pqstream/pqstream/internal/stats"
	"github.com/pqstream/pqstream/internal/window"
)

func newTestRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// gaugeValue finds a gauge sample by family name and labels.
func gaugeValue(t *testing.T, reg *prometheus.Registry, name, stream, phase string) (float64, bool) {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["stream"] == stream && labels["phase"] == phase {
				return m.GetGauge().GetValue(), true
			}
		}
	}
	return 0, false
}

func TestNewGaugeSetFamilies(t *testing.T) {
	reg := newTestRegistry()
	g := NewGaugeSet(reg)

	// Nine channels plus two rollup families, four statistics each.
	want := (len(stats.Channels) + 2) * len(Statistics)
	if g.Len() != want {
		t.Errorf("Len() = %d, want %d", g.Len(), want)
	}
}

func TestExporterUpdateStream(t *testing.T) {
	reg := newTestRegistry()
	e := NewExporter(reg)

	r := stats.NewRegistry(10)
	r.Apply("threephase/feeder-1", stats.TwoPhaseReading{
		PhaseA: stats.PhaseReading{RMSVoltage: 120, RealPower: 1000, PowerFactor: 0.9},
		PhaseB: stats.PhaseReading{RMSVoltage: 121, RealPower: 900, PowerFactor: 0.8},
	})
	snap, _ := r.SnapshotFor("threephase/feeder-1")
	e.UpdateStream("threephase/feeder-1", snap)

	tests := []struct {
		metric string
		phase  string
		want   float64
	}{
		{"rms_voltage_latest", "a", 120},
		{"rms_voltage_latest", "b", 121},
		{"real_power_peak", "a", 1000},
		{"active_power_latest", "a", 1000}, // alias of real power
		{"power_factor_average", "b", 0.8},
	}
	for _, tt := range tests {
		got, ok := gaugeValue(t, reg, tt.metric, "threephase/feeder-1", tt.phase)
		if !ok {
			t.Errorf("%s{phase=%q}: series missing", tt.metric, tt.phase)
			continue
		}
		if got != tt.want {
			t.Errorf("%s{phase=%q} = %v, want %v", tt.metric, tt.phase, got, tt.want)
		}
	}
}

// TestExporterSkipsEmpty checks that channels without data export no
// series at all, rather than sentinel values.
func TestExporterSkipsEmpty(t *testing.T) {
	reg := newTestRegistry()
	e := NewExporter(reg)

	e.UpdateStream("threephase/feeder-1", stats.StreamSnapshot{
		PhaseA: stats.ChannelSnapshot{},
		PhaseB: stats.ChannelSnapshot{},
	})
	e.UpdateRollup("measurements", stats.RollupSnapshot{}) // all zero samples

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	for _, mf := range families {
		if len(mf.GetMetric()) != 0 {
			t.Errorf("family %s has %d series, want 0", mf.GetName(), len(mf.GetMetric()))
		}
	}
}

func TestExporterUpdateRollup(t *testing.T) {
	reg := newTestRegistry()
	e := NewExporter(reg)

	tp := stats.NewThreePhase(10)
	tp.Apply("measurements", stats.ThreePhaseTotals{
		RealA: 150, ReactiveA: 25, RealB: 15, ReactiveB: 2.5,
	})
	snap, _ := tp.SnapshotFor("measurements")
	e.UpdateRollup("measurements", snap)

	tests := []struct {
		metric string
		phase  string
		want   float64
	}{
		{"real_power_three_phase_latest", "a", 150},
		{"real_power_three_phase_latest", "b", 15},
		{"reactive_power_three_phase_peak", "a", 25},
		{"reactive_power_three_phase_trough", "b", 2.5},
	}
	for _, tt := range tests {
		got, ok := gaugeValue(t, reg, tt.metric, "measurements", tt.phase)
		if !ok {
			t.Errorf("%s{phase=%q}: series missing", tt.metric, tt.phase)
			continue
		}
		if got != tt.want {
			t.Errorf("%s{phase=%q} = %v, want %v", tt.metric, tt.phase, got, tt.want)
		}
	}
}

// TestExporterScrapeText encodes the gathered metrics in the exposition
// text format and parses them back, verifying what a scraper sees.
func TestExporterScrapeText(t *testing.T) {
	reg := newTestRegistry()
	e := NewExporter(reg)

	e.setAll("rms_voltage", "threephase/feeder-1", "a", window.Snapshot{
		Latest: 120, Peak: 125, Trough: 115, Average: 119.5, Samples: 4,
	})

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			t.Fatalf("Encode(%s) error: %v", mf.GetName(), err)
		}
	}

	parser := expfmt.NewTextParser(model.LegacyValidation)
	parsed, err := parser.TextToMetricFamilies(&buf)
	if err != nil {
		t.Fatalf("TextToMetricFamilies() error: %v", err)
	}

	mf, ok := parsed["rms_voltage_peak"]
	if !ok {
		t.Fatal("rms_voltage_peak missing from scrape output")
	}
	if mf.GetType() != dto.MetricType_GAUGE {
		t.Errorf("type = %v, want GAUGE", mf.GetType())
	}
	if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 125 {
		t.Errorf("rms_voltage_peak = %v, want 125", got)
	}
}
