// Package archive persists measurement frames to Postgres as JSONB
// records, one row per frame.
package archive

import (
	"log/slog"

	"github.com/pqstream/pqstream/internal/dispatch"
	"github.com/pqstream/pqstream/internal/stats"
	"github.com/pqstream/pqstream/internal/wire"
)

// PhaseRecord is the per-phase slice of an archived entry. The two
// three_phase fields carry the frame-wide sums for that phase, so
// every entry in a frame repeats the same rollup values.
type PhaseRecord struct {
	RMSCurrent              float64 `json:"rms_current"`
	RMSVoltage              float64 `json:"rms_voltage"`
	DCOffsetVoltage         float64 `json:"dc_offset_voltage"`
	DCOffsetCurrent         float64 `json:"dc_offset_current"`
	RealPower               float64 `json:"real_power"`
	ApparentPower           float64 `json:"apparent_power"`
	ReactivePower           float64 `json:"reactive_power"`
	PowerFactor             float64 `json:"power_factor"`
	ThreePhaseRealPower     float64 `json:"three_phase_real_power"`
	ThreePhaseReactivePower float64 `json:"three_phase_reactive_power"`
}

// EntryRecord is one calculation entry within a frame record.
type EntryRecord struct {
	PhaseA PhaseRecord `json:"phase_a"`
	PhaseB PhaseRecord `json:"phase_b"`
}

// Record maps calculation names to their archived readings. One
// Record covers one frame.
type Record map[string]EntryRecord

// BuildRecord converts a decoded frame into its archive record.
// Entries missing required fields are logged and skipped; the
// three-phase sums cover only the entries that made it in.
func BuildRecord(frame *wire.Frame, logger *slog.Logger) Record {
	record := make(Record, len(frame.Entries))

	var totals stats.ThreePhaseTotals
	readings := make(map[string]stats.TwoPhaseReading, len(frame.Entries))

	for i := range frame.Entries {
		entry := &frame.Entries[i]
		if entry.Calculations == nil {
			continue
		}
		reading, err := dispatch.ValidateEntry(entry)
		if err != nil {
			logger.Warn("malformed_entry_skipped",
				"name", entry.Name,
				"error", err,
			)
			continue
		}
		readings[entry.Name] = reading
		totals.Add(reading)
	}

	for name, reading := range readings {
		record[name] = EntryRecord{
			PhaseA: phaseRecord(reading.PhaseA, totals.RealA, totals.ReactiveA),
			PhaseB: phaseRecord(reading.PhaseB, totals.RealB, totals.ReactiveB),
		}
	}
	return record
}

func phaseRecord(r stats.PhaseReading, threePhaseReal, threePhaseReactive float64) PhaseRecord {
	return PhaseRecord{
		RMSCurrent:              r.RMSCurrent,
		RMSVoltage:              r.RMSVoltage,
		DCOffsetVoltage:         r.DCOffsetVoltage,
		DCOffsetCurrent:         r.DCOffsetCurrent,
		RealPower:               r.RealPower,
		ApparentPower:           r.ApparentPower,
		ReactivePower:           r.ReactivePower,
		PowerFactor:             r.PowerFactor,
		ThreePhaseRealPower:     threePhaseReal,
		ThreePhaseReactivePower: threePhaseReactive,
	}
}
