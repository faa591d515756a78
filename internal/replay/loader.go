// Package replay turns archived CSV datasets back into live frame
// streams for load testing and dashboard development.
package replay

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/pqstream/pqstream/internal/wire"
)

// row is one CSV line: a single phase of a single stream at one
// timestamp.
type row struct {
	timeMillis      int64
	stream          string
	phase           string
	rmsVoltage      float32
	dcOffsetVoltage float32
	rmsCurrent      float32
	dcOffsetCurrent float32
	realPower       float32
	apparentPower   float32
	reactivePower   float32
	powerFactor     float32
	sequence        *uint64
}

var requiredColumns = []string{
	"time", "stream_name", "phase",
	"rms_voltage", "dc_offset_voltage",
	"rms_current", "dc_offset_current",
	"real_power", "apparent_power", "reactive_power", "power_factor",
}

// frameGroup accumulates the rows of one timestamp, keeping stream
// insertion order so loaded frames are deterministic.
type frameGroup struct {
	order   []string
	streams map[string]*phasePair
}

type phasePair struct {
	a *row
	b *row
}

func newFrameGroup() *frameGroup {
	return &frameGroup{streams: make(map[string]*phasePair)}
}

func (g *frameGroup) add(r *row, logger *slog.Logger) {
	pair, ok := g.streams[r.stream]
	if !ok {
		pair = &phasePair{}
		g.streams[r.stream] = pair
		g.order = append(g.order, r.stream)
	}
	switch r.phase {
	case "phase_a":
		pair.a = r
	case "phase_b":
		pair.b = r
	default:
		logger.Warn("unknown_phase_skipped", "phase", r.phase, "stream", r.stream)
	}
}

func (g *frameGroup) empty() bool { return len(g.order) == 0 }

// LoadFrames parses a CSV dataset into frames. Rows are grouped by
// timestamp; every timestamp change starts a new frame. When a stream
// has no phase_b row its phase_a row stands in for both phases, which
// lets datasets that only export phase A stay half the size.
func LoadFrames(r io.Reader, logger *slog.Logger) ([]*wire.Frame, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("csv missing column %q", name)
		}
	}

	var (
		frames   []*wire.Frame
		group    = newFrameGroup()
		lastTime int64
		haveTime bool
		seq      uint64
	)

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		parsed, err := parseRow(record, cols)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}

		if haveTime && parsed.timeMillis != lastTime && !group.empty() {
			frames = append(frames, buildFrame(group, seq))
			seq++
			group = newFrameGroup()
		}
		lastTime = parsed.timeMillis
		haveTime = true

		group.add(parsed, logger)
	}
	if !group.empty() {
		frames = append(frames, buildFrame(group, seq))
	}

	logger.Info("dataset_loaded", "frames", len(frames))
	return frames, nil
}

func parseRow(record []string, cols map[string]int) (*row, error) {
	r := &row{
		stream: record[cols["stream_name"]],
		phase:  record[cols["phase"]],
	}

	var err error
	if r.timeMillis, err = strconv.ParseInt(record[cols["time"]], 10, 64); err != nil {
		return nil, fmt.Errorf("bad time: %w", err)
	}

	floats := []struct {
		name string
		dst  *float32
	}{
		{"rms_voltage", &r.rmsVoltage},
		{"dc_offset_voltage", &r.dcOffsetVoltage},
		{"rms_current", &r.rmsCurrent},
		{"dc_offset_current", &r.dcOffsetCurrent},
		{"real_power", &r.realPower},
		{"apparent_power", &r.apparentPower},
		{"reactive_power", &r.reactivePower},
		{"power_factor", &r.powerFactor},
	}
	for _, f := range floats {
		v, err := strconv.ParseFloat(record[cols[f.name]], 32)
		if err != nil {
			return nil, fmt.Errorf("bad %s: %w", f.name, err)
		}
		*f.dst = float32(v)
	}

	if idx, ok := cols["sequence_number"]; ok && record[idx] != "" {
		v, err := strconv.ParseUint(record[idx], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad sequence_number: %w", err)
		}
		r.sequence = wire.Uint64(v)
	}
	return r, nil
}

func buildFrame(group *frameGroup, frameSeq uint64) *wire.Frame {
	frame := &wire.Frame{}

	for _, stream := range group.order {
		pair := group.streams[stream]
		if pair.a == nil {
			continue
		}
		rowB := pair.b
		if rowB == nil {
			rowB = pair.a
		}

		frame.Entries = append(frame.Entries, wire.Entry{
			Name: "threephase/" + stream,
			Calculations: &wire.TwoPhaseCalculation{
				PhaseA: buildPhase(pair.a, frameSeq),
				PhaseB: buildPhase(rowB, frameSeq),
			},
		})
	}
	return frame
}

func buildPhase(r *row, frameSeq uint64) *wire.PhaseCalculation {
	seq := r.sequence
	if seq == nil {
		seq = wire.Uint64(frameSeq)
	}
	return &wire.PhaseCalculation{
		Provenance: &wire.Provenance{
			// Stamped with the live clock at publish time.
			UTCTime:        &wire.Timestamp{},
			SequenceNumber: seq,
		},
		VoltageWaveform: &wire.WaveformCalculation{
			RMS:      wire.Float32(r.rmsVoltage),
			DCOffset: wire.Float32(r.dcOffsetVoltage),
		},
		CurrentWaveform: &wire.WaveformCalculation{
			RMS:      wire.Float32(r.rmsCurrent),
			DCOffset: wire.Float32(r.dcOffsetCurrent),
		},
		Power: &wire.PowerCalculation{
			RealPowerW:       wire.Float32(r.realPower),
			ApparentPowerVA:  wire.Float32(r.apparentPower),
			ReactivePowerVAR: wire.Float32(r.reactivePower),
			PowerFactor:      wire.Float32(r.powerFactor),
		},
	}
}
