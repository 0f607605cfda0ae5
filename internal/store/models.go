// SPDX-License-Identifier: MIT
package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"spectra/internal/engine"
	"spectra/internal/response"
)

// Session is one stored analysis run.
type Session struct {
	ID         int64
	StartedAt  time.Time
	Source     string
	SampleRate int
	FFTSize    int
	Config     *string // JSON, if recorded
	Frames     int
}

// FrameRecord is the stored subset of an engine.Frame.
type FrameRecord struct {
	Sequence   uint64
	Position   time.Duration
	Levels     response.Levels // shaped
	Kick       bool
	Amplitudes []float32 // smoothed band amplitudes in band order
}

// RecordFrame extracts the stored fields of f.
func RecordFrame(f engine.Frame) FrameRecord {
	amps := make([]float32, len(f.Bands))
	for i, b := range f.Bands {
		amps[i] = float32(b.SmoothedAmplitude)
	}
	return FrameRecord{
		Sequence:   f.Sequence,
		Position:   f.Position,
		Levels:     f.Shaped,
		Kick:       f.Kick,
		Amplitudes: amps,
	}
}

func encodeAmplitudes(amps []float32) []byte {
	b := make([]byte, 0, 4*len(amps))
	for _, v := range amps {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	}
	return b
}

func decodeAmplitudes(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("amplitude blob length %d is not a multiple of 4", len(b))
	}
	amps := make([]float32, len(b)/4)
	for i := range amps {
		amps[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return amps, nil
}
