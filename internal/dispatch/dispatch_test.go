package dispatch

import (
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pqstream/pqstream/internal/metrics"
	"github.com/pqstream/pqstream/internal/stats"
	"github.com/pqstream/pqstream/internal/wire"
)

type testHarness struct {
	dispatcher *Dispatcher
	registry   *stats.Registry
	rollup     *stats.ThreePhase
	promReg    *prometheus.Registry
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	promReg := prometheus.NewRegistry()
	registry := stats.NewRegistry(10)
	rollup := stats.NewThreePhase(10)

	d := New(Config{
		Registry:  registry,
		Rollup:    rollup,
		Exporter:  metrics.NewExporter(promReg),
		Health:    metrics.NewIngestHealth(promReg),
		RollupKey: "measurements",
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &testHarness{dispatcher: d, registry: registry, rollup: rollup, promReg: promReg}
}

func wirePhase(real, reactive float32) *wire.PhaseCalculation {
	return &wire.PhaseCalculation{
		VoltageWaveform: &wire.WaveformCalculation{
			RMS:      wire.Float32(120),
			DCOffset: wire.Float32(0.5),
		},
		CurrentWaveform: &wire.WaveformCalculation{
			RMS:      wire.Float32(10),
			DCOffset: wire.Float32(0.1),
		},
		Power: &wire.PowerCalculation{
			RealPowerW:       wire.Float32(real),
			ApparentPowerVA:  wire.Float32(real + 100),
			ReactivePowerVAR: wire.Float32(reactive),
			PowerFactor:      wire.Float32(0.9),
		},
	}
}

func wireEntry(name string, realA, realB float32) wire.Entry {
	return wire.Entry{
		Name: name,
		Calculations: &wire.TwoPhaseCalculation{
			PhaseA: wirePhase(realA, realA/10),
			PhaseB: wirePhase(realB, realB/10),
		},
	}
}

func TestProcessFrameAppliesEntries(t *testing.T) {
	h := newTestHarness(t)

	h.dispatcher.ProcessFrame(&wire.Frame{Entries: []wire.Entry{
		wireEntry("threephase/feeder-1", 1000, 900),
		wireEntry("threephase/feeder-2", 500, 400),
	}})

	if h.registry.Len() != 2 {
		t.Fatalf("registry has %d streams, want 2", h.registry.Len())
	}
	snap, ok := h.registry.SnapshotFor("threephase/feeder-1")
	if !ok {
		t.Fatal("feeder-1 missing from registry")
	}
	if got := snap.PhaseA[stats.ChannelRealPower].Latest; got != 1000 {
		t.Errorf("feeder-1 phase A real_power = %v, want 1000", got)
	}
	if got := snap.PhaseB[stats.ChannelRealPower].Latest; got != 900 {
		t.Errorf("feeder-1 phase B real_power = %v, want 900", got)
	}
}

// TestProcessFrameThreePhaseSummation: two entries with phase A real
// power 100 and 50, phase B 10 and 5, so the rollup receives a single
// push of 150 and 15 respectively.
func TestProcessFrameThreePhaseSummation(t *testing.T) {
	h := newTestHarness(t)

	h.dispatcher.ProcessFrame(&wire.Frame{Entries: []wire.Entry{
		wireEntry("threephase/feeder-1", 100, 10),
		wireEntry("threephase/feeder-2", 50, 5),
	}})

	snap, ok := h.rollup.SnapshotFor("measurements")
	if !ok {
		t.Fatal("rollup missing after frame")
	}
	if snap.RealA.Samples != 1 {
		t.Fatalf("RealA Samples = %d, want 1 (single push, not per-entry)", snap.RealA.Samples)
	}
	if snap.RealA.Latest != 150 {
		t.Errorf("RealA = %v, want 150", snap.RealA.Latest)
	}
	if snap.RealB.Latest != 15 {
		t.Errorf("RealB = %v, want 15", snap.RealB.Latest)
	}
}

// TestProcessFrameIndependence checks each frame grows every touched
// window by exactly one sample.
func TestProcessFrameIndependence(t *testing.T) {
	h := newTestHarness(t)

	for i := 0; i < 3; i++ {
		h.dispatcher.ProcessFrame(&wire.Frame{Entries: []wire.Entry{
			wireEntry("threephase/feeder-1", 100, 10),
		}})
	}

	snap, _ := h.registry.SnapshotFor("threephase/feeder-1")
	if got := snap.PhaseA[stats.ChannelRealPower].Samples; got != 3 {
		t.Errorf("channel Samples = %d, want 3", got)
	}
	rollup, _ := h.rollup.SnapshotFor("measurements")
	if rollup.RealA.Samples != 3 {
		t.Errorf("rollup Samples = %d, want 3", rollup.RealA.Samples)
	}
}

func TestProcessFrameSkipsUnknownProduct(t *testing.T) {
	h := newTestHarness(t)

	// Seed some state, then send a frame with an unrecognized product.
	h.dispatcher.ProcessFrame(&wire.Frame{Entries: []wire.Entry{
		wireEntry("threephase/feeder-1", 100, 10),
	}})
	before, _ := h.registry.SnapshotFor("threephase/feeder-1")

	h.dispatcher.ProcessFrame(&wire.Frame{Entries: []wire.Entry{
		{Name: "threephase/feeder-1"}, // nil Calculations: not two-phase
	}})

	after, _ := h.registry.SnapshotFor("threephase/feeder-1")
	if got := after.PhaseA[stats.ChannelRealPower].Samples; got != before.PhaseA[stats.ChannelRealPower].Samples {
		t.Errorf("unknown product mutated channel state: %d -> %d samples",
			before.PhaseA[stats.ChannelRealPower].Samples, got)
	}
	// The frame itself still finalizes the rollup (with zero totals).
	rollup, _ := h.rollup.SnapshotFor("measurements")
	if rollup.RealA.Samples != 2 {
		t.Errorf("rollup Samples = %d, want 2", rollup.RealA.Samples)
	}
	if rollup.RealA.Latest != 0 {
		t.Errorf("rollup latest after empty frame = %v, want 0", rollup.RealA.Latest)
	}
}

func TestProcessFrameSkipsMalformedEntry(t *testing.T) {
	malformed := []struct {
		name  string
		entry wire.Entry
	}{
		{
			name: "missing phase_b",
			entry: wire.Entry{
				Name: "threephase/feeder-1",
				Calculations: &wire.TwoPhaseCalculation{
					PhaseA: wirePhase(100, 10),
				},
			},
		},
		{
			name: "missing power calculations",
			entry: func() wire.Entry {
				e := wireEntry("threephase/feeder-1", 100, 10)
				e.Calculations.PhaseA.Power = nil
				return e
			}(),
		},
		{
			name: "missing rms field",
			entry: func() wire.Entry {
				e := wireEntry("threephase/feeder-1", 100, 10)
				e.Calculations.PhaseB.VoltageWaveform.RMS = nil
				return e
			}(),
		},
		{
			name: "missing name",
			entry: func() wire.Entry {
				e := wireEntry("", 100, 10)
				return e
			}(),
		},
	}

	for _, tt := range malformed {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHarness(t)

			// Frame mixes a malformed entry with a good one; the good
			// one must still be applied.
			h.dispatcher.ProcessFrame(&wire.Frame{Entries: []wire.Entry{
				tt.entry,
				wireEntry("threephase/feeder-2", 50, 5),
			}})

			if _, ok := h.registry.SnapshotFor("threephase/feeder-2"); !ok {
				t.Error("valid entry was not applied after malformed sibling")
			}
			rollup, _ := h.rollup.SnapshotFor("measurements")
			if rollup.RealA.Latest != 50 {
				t.Errorf("rollup RealA = %v, want 50 (malformed entry excluded)", rollup.RealA.Latest)
			}
		})
	}
}

func TestValidateEntryErrors(t *testing.T) {
	good := wireEntry("threephase/feeder-1", 100, 10)
	if _, err := ValidateEntry(&good); err != nil {
		t.Fatalf("ValidateEntry(valid) error: %v", err)
	}

	missingFactor := wireEntry("threephase/feeder-1", 100, 10)
	missingFactor.Calculations.PhaseA.Power.PowerFactor = nil
	if _, err := ValidateEntry(&missingFactor); err == nil {
		t.Error("ValidateEntry() accepted missing power_factor")
	}

	missingCurrent := wireEntry("threephase/feeder-1", 100, 10)
	missingCurrent.Calculations.PhaseB.CurrentWaveform = nil
	if _, err := ValidateEntry(&missingCurrent); err == nil {
		t.Error("ValidateEntry() accepted missing current waveform")
	}
}
