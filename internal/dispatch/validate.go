package dispatch

import (
	"errors"
	"fmt"

	"github.com/pqstream/pqstream/internal/stats"
	"github.com/pqstream/pqstream/internal/wire"
)

var errNoName = errors.New("entry has no calculation name")

// ValidateEntry checks that a two-phase entry carries every field the
// aggregation needs and converts it to a validated reading. A missing
// field makes the entry malformed; malformed entries are skipped by
// the caller, never fatal.
func ValidateEntry(e *wire.Entry) (stats.TwoPhaseReading, error) {
	var reading stats.TwoPhaseReading

	if e.Name == "" {
		return reading, errNoName
	}
	if e.Calculations.PhaseA == nil {
		return reading, errors.New("missing phase_a")
	}
	if e.Calculations.PhaseB == nil {
		return reading, errors.New("missing phase_b")
	}

	var err error
	if reading.PhaseA, err = validatePhase(e.Calculations.PhaseA); err != nil {
		return reading, fmt.Errorf("phase_a: %w", err)
	}
	if reading.PhaseB, err = validatePhase(e.Calculations.PhaseB); err != nil {
		return reading, fmt.Errorf("phase_b: %w", err)
	}
	return reading, nil
}

func validatePhase(p *wire.PhaseCalculation) (stats.PhaseReading, error) {
	var r stats.PhaseReading

	if p.VoltageWaveform == nil {
		return r, errors.New("missing voltage waveform")
	}
	if p.CurrentWaveform == nil {
		return r, errors.New("missing current waveform")
	}
	if p.Power == nil {
		return r, errors.New("missing power calculations")
	}

	fields := []struct {
		name string
		src  *float32
		dst  *float64
	}{
		{"voltage rms", p.VoltageWaveform.RMS, &r.RMSVoltage},
		{"voltage dc_offset", p.VoltageWaveform.DCOffset, &r.DCOffsetVoltage},
		{"current rms", p.CurrentWaveform.RMS, &r.RMSCurrent},
		{"current dc_offset", p.CurrentWaveform.DCOffset, &r.DCOffsetCurrent},
		{"real_power_w", p.Power.RealPowerW, &r.RealPower},
		{"apparent_power_va", p.Power.ApparentPowerVA, &r.ApparentPower},
		{"reactive_power_var", p.Power.ReactivePowerVAR, &r.ReactivePower},
		{"power_factor", p.Power.PowerFactor, &r.PowerFactor},
	}
	for _, f := range fields {
		if f.src == nil {
			return stats.PhaseReading{}, fmt.Errorf("missing %s", f.name)
		}
		*f.dst = float64(*f.src)
	}
	return r, nil
}
