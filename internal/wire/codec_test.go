package wire

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

// testPhase builds a fully populated phase calculation.
func testPhase(base float32) *PhaseCalculation {
	return &PhaseCalculation{
		Provenance: &Provenance{
			UTCTime:        &Timestamp{Seconds: 1700000000, Nanos: 500},
			SequenceNumber: Uint64(42),
		},
		VoltageWaveform: &WaveformCalculation{
			RMS:      Float32(base + 0.1),
			DCOffset: Float32(base + 0.2),
		},
		CurrentWaveform: &WaveformCalculation{
			RMS:      Float32(base + 0.3),
			DCOffset: Float32(base + 0.4),
		},
		Power: &PowerCalculation{
			RealPowerW:       Float32(base + 0.5),
			ApparentPowerVA:  Float32(base + 0.6),
			ReactivePowerVAR: Float32(base + 0.7),
			PowerFactor:      Float32(0.95),
		},
	}
}

func TestRoundTrip(t *testing.T) {
	in := &Frame{
		Entries: []Entry{
			{
				Name: "threephase/feeder-1",
				Calculations: &TwoPhaseCalculation{
					PhaseA: testPhase(100),
					PhaseB: testPhase(200),
				},
			},
			{
				Name: "threephase/feeder-2",
				Calculations: &TwoPhaseCalculation{
					PhaseA: testPhase(300),
					PhaseB: testPhase(400),
				},
			},
		},
	}

	out, err := Unmarshal(Marshal(in))
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if len(out.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(out.Entries))
	}

	for i, entry := range out.Entries {
		want := in.Entries[i]
		if entry.Name != want.Name {
			t.Errorf("entry %d: Name = %q, want %q", i, entry.Name, want.Name)
		}
		if entry.Calculations == nil {
			t.Fatalf("entry %d: Calculations is nil", i)
		}
		for _, phase := range []struct {
			label    string
			got, out *PhaseCalculation
		}{
			{"phase_a", entry.Calculations.PhaseA, want.Calculations.PhaseA},
			{"phase_b", entry.Calculations.PhaseB, want.Calculations.PhaseB},
		} {
			if phase.got == nil {
				t.Fatalf("entry %d %s: nil", i, phase.label)
			}
			if got, want := *phase.got.Power.RealPowerW, *phase.out.Power.RealPowerW; got != want {
				t.Errorf("entry %d %s: RealPowerW = %v, want %v", i, phase.label, got, want)
			}
			if got, want := *phase.got.VoltageWaveform.RMS, *phase.out.VoltageWaveform.RMS; got != want {
				t.Errorf("entry %d %s: voltage RMS = %v, want %v", i, phase.label, got, want)
			}
			if got, want := *phase.got.CurrentWaveform.DCOffset, *phase.out.CurrentWaveform.DCOffset; got != want {
				t.Errorf("entry %d %s: current DC offset = %v, want %v", i, phase.label, got, want)
			}
			if phase.got.Provenance == nil || phase.got.Provenance.UTCTime == nil {
				t.Fatalf("entry %d %s: provenance missing", i, phase.label)
			}
			if got := phase.got.Provenance.UTCTime.Seconds; got != 1700000000 {
				t.Errorf("entry %d %s: UTCTime.Seconds = %d, want 1700000000", i, phase.label, got)
			}
			if got := *phase.got.Provenance.SequenceNumber; got != 42 {
				t.Errorf("entry %d %s: SequenceNumber = %d, want 42", i, phase.label, got)
			}
		}
	}
}

func TestMissingOptionalFields(t *testing.T) {
	in := &Frame{
		Entries: []Entry{{
			Name: "threephase/feeder-1",
			Calculations: &TwoPhaseCalculation{
				PhaseA: &PhaseCalculation{
					// Power only; both waveform messages absent.
					Power: &PowerCalculation{RealPowerW: Float32(50)},
				},
				// PhaseB absent entirely.
			},
		}},
	}

	out, err := Unmarshal(Marshal(in))
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	entry := out.Entries[0]
	pa := entry.Calculations.PhaseA
	if pa == nil {
		t.Fatal("PhaseA is nil")
	}
	if pa.VoltageWaveform != nil || pa.CurrentWaveform != nil {
		t.Error("absent waveform messages decoded as present")
	}
	if pa.Power.ApparentPowerVA != nil {
		t.Error("absent ApparentPowerVA decoded as present")
	}
	if got := *pa.Power.RealPowerW; got != 50 {
		t.Errorf("RealPowerW = %v, want 50", got)
	}
	if entry.Calculations.PhaseB != nil {
		t.Error("absent PhaseB decoded as present")
	}
}

func TestUnknownProductVariant(t *testing.T) {
	// Build an entry whose data_product is a variant this reader does
	// not understand (field number 7 in the oneof).
	var entry []byte
	entry = protowire.AppendTag(entry, 1, protowire.BytesType)
	entry = protowire.AppendString(entry, "threephase/feeder-9")
	entry = protowire.AppendTag(entry, 7, protowire.BytesType)
	entry = protowire.AppendBytes(entry, []byte{0x08, 0x01}) // some nested message

	var frame []byte
	frame = protowire.AppendTag(frame, 1, protowire.BytesType)
	frame = protowire.AppendBytes(frame, entry)

	out, err := Unmarshal(frame)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if len(out.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(out.Entries))
	}
	e := out.Entries[0]
	if e.Name != "threephase/feeder-9" {
		t.Errorf("Name = %q", e.Name)
	}
	if e.Calculations != nil {
		t.Error("unknown product decoded as two-phase calculations")
	}
	if !e.HasUnknownProduct() {
		t.Error("HasUnknownProduct() = false, want true")
	}
}

func TestUnmarshalTruncated(t *testing.T) {
	in := &Frame{Entries: []Entry{{
		Name:         "threephase/feeder-1",
		Calculations: &TwoPhaseCalculation{PhaseA: testPhase(1)},
	}}}
	buf := Marshal(in)

	// Chop the buffer mid-message; decoding must fail, not panic.
	if _, err := Unmarshal(buf[:len(buf)-3]); err == nil {
		t.Error("Unmarshal(truncated) returned nil error")
	}
}

func TestUnmarshalEmpty(t *testing.T) {
	out, err := Unmarshal(nil)
	if err != nil {
		t.Fatalf("Unmarshal(nil) error: %v", err)
	}
	if len(out.Entries) != 0 {
		t.Errorf("got %d entries, want 0", len(out.Entries))
	}
}
