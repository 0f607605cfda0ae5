// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"

	"spectra/internal/fft"
)

// FrequencyBand is a contiguous, inclusive range of spectrum bins aggregated
// into one amplitude. Bin ranges are fixed once the band set is built; only
// the amplitudes change from frame to frame.
type FrequencyBand struct {
	Name              string  `json:"name"`
	CenterFrequency   float64 `json:"center"`
	BinStart          int     `json:"binStart"`
	BinEnd            int     `json:"binEnd"`
	Amplitude         float64 `json:"amplitude"`
	SmoothedAmplitude float64 `json:"smoothed"`
}

type bandRange struct {
	name   string
	lowHz  float64
	highHz float64
}

// Perceptual ranges, in declaration order.
var perceptualBands = []bandRange{
	{"SubBass", 20, 60},
	{"Bass", 60, 250},
	{"LowMid", 250, 500},
	{"Mid", 500, 2000},
	{"HighMid", 2000, 4000},
	{"Presence", 4000, 6000},
	{"Brilliance", 6000, 20000},
}

// Detail bands are log-spaced between these limits.
const (
	detailBandCount = 16
	detailMinHz     = 80.0
	detailMaxHz     = 8000.0
)

// Summary ranges over band centre frequencies, inclusive at both ends.
const (
	bassLowHz   = 60.0
	bassHighHz  = 250.0
	midHighHz   = 4000.0
	trebleLowHz = 4000.0
)

// detailRanges returns the log-spaced detail band edges.
func detailRanges() []bandRange {
	logMin, logMax := math.Log10(detailMinHz), math.Log10(detailMaxHz)
	step := (logMax - logMin) / detailBandCount

	ranges := make([]bandRange, detailBandCount)
	for i := range ranges {
		ranges[i] = bandRange{
			name:   fmt.Sprintf("Detail%02d", i+1),
			lowHz:  math.Pow(10, logMin+float64(i)*step),
			highHz: math.Pow(10, logMin+float64(i+1)*step),
		}
	}
	return ranges
}

// buildBands constructs the band set for one (fftSize, sampleRate) pair. Bin
// ranges are clamped to [0, fftSize/2]; a band left with binStart > binEnd lies
// above Nyquist and is dropped.
func buildBands(fftSize, sampleRate int) []FrequencyBand {
	ranges := append(append([]bandRange(nil), perceptualBands...), detailRanges()...)
	nyquistBin := fftSize / 2

	bands := make([]FrequencyBand, 0, len(ranges))
	for _, r := range ranges {
		start := max(0, fft.FrequencyBin(r.lowHz, fftSize, sampleRate))
		end := min(fft.FrequencyBin(r.highHz, fftSize, sampleRate), nyquistBin)
		if start > end {
			logger.Debugf("dropping band %s (starts above Nyquist, %.0f Hz)", r.name, fft.BinFrequency(nyquistBin, fftSize, sampleRate))
			continue
		}
		bands = append(bands, FrequencyBand{
			Name:            r.name,
			CenterFrequency: (r.lowHz + r.highHz) / 2,
			BinStart:        start,
			BinEnd:          end,
		})
	}
	return bands
}
