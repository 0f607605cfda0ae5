// SPDX-License-Identifier: MIT

// Package analysis buckets a spectrum into named frequency bands, smooths the
// band amplitudes across frames and derives bass, mid and treble summaries.
package analysis

import (
	"spectra/internal/fft"
	"spectra/internal/log"
	"spectra/internal/response"
)

// DefaultSmoothing is the one-pole smoothing factor α.
const DefaultSmoothing = 0.8

var logger = log.For("analysis")

// Aggregator maps spectra onto the band set and keeps per-band smoothing
// state between calls. It is not safe for concurrent use.
type Aggregator struct {
	smoothing float64

	fftSize    int
	sampleRate int
	bands      []FrequencyBand
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithSmoothing sets α, clamped to [0, 1).
func WithSmoothing(alpha float64) AggregatorOption {
	return func(a *Aggregator) {
		a.smoothing = clamp(alpha, 0, 0.999)
	}
}

// NewAggregator returns an Aggregator. The band set is built on the first call
// to AnalyzeFrequencies.
func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{smoothing: DefaultSmoothing}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeFrequencies updates every band from s and returns a copy of the band
// set in declaration order. The band set is rebuilt, and smoothing restarted,
// whenever the (fftSize, sampleRate) pair differs from the previous call.
func (a *Aggregator) AnalyzeFrequencies(s fft.Spectrum, sampleRate int) []FrequencyBand {
	fftSize := s.SampleCount
	if fftSize == 0 && len(s.Magnitudes) > 0 {
		fftSize = (len(s.Magnitudes) - 1) * 2
	}
	if fftSize <= 0 || sampleRate <= 0 {
		return nil
	}

	if a.bands == nil || fftSize != a.fftSize || sampleRate != a.sampleRate {
		a.bands = buildBands(fftSize, sampleRate)
		a.fftSize, a.sampleRate = fftSize, sampleRate
		logger.Debugf("built %d bands for fft size %d at %d Hz", len(a.bands), fftSize, sampleRate)
	}

	for i := range a.bands {
		b := &a.bands[i]
		amp := meanMagnitude(s.Magnitudes, b.BinStart, b.BinEnd)
		if s.MaxMagnitude > 0 {
			amp /= s.MaxMagnitude
		}
		b.Amplitude = clamp(amp, 0, 1)
		b.SmoothedAmplitude = a.smoothing*b.SmoothedAmplitude + (1-a.smoothing)*b.Amplitude
	}

	out := make([]FrequencyBand, len(a.bands))
	copy(out, a.bands)
	return out
}

// meanMagnitude averages mags over [start, end], skipping bins past the end of
// the slice. It is 0 when no bin is valid.
func meanMagnitude(mags []float64, start, end int) float64 {
	end = min(end, len(mags)-1)
	if start > end {
		return 0
	}
	var sum float64
	for _, m := range mags[start : end+1] {
		sum += m
	}
	return sum / float64(end-start+1)
}

// GetBassLevel is the mean smoothed amplitude of bands centred in [60, 250] Hz.
func (a *Aggregator) GetBassLevel() float64 {
	return a.meanSmoothed(func(f float64) bool { return f >= bassLowHz && f <= bassHighHz })
}

// GetMidLevel is the mean smoothed amplitude of bands centred in [250, 4000] Hz.
func (a *Aggregator) GetMidLevel() float64 {
	return a.meanSmoothed(func(f float64) bool { return f >= bassHighHz && f <= midHighHz })
}

// GetTrebleLevel is the mean smoothed amplitude of bands centred at or above 4000 Hz.
func (a *Aggregator) GetTrebleLevel() float64 {
	return a.meanSmoothed(func(f float64) bool { return f >= trebleLowHz })
}

// RangeMaxLevels returns the loudest smoothed amplitude in each range, split on
// band centres: bass below 250 Hz (sub-bass included), mid below 4000 Hz and
// treble above. These are the shaper inputs; one strong band drives its whole
// channel instead of being averaged away by its quiet neighbours.
func RangeMaxLevels(bands []FrequencyBand) response.Levels {
	var l response.Levels
	for i := range bands {
		amp := bands[i].SmoothedAmplitude
		switch c := bands[i].CenterFrequency; {
		case c < bassHighHz:
			l.Bass = max(l.Bass, amp)
		case c < midHighHz:
			l.Mid = max(l.Mid, amp)
		default:
			l.Treble = max(l.Treble, amp)
		}
	}
	return l
}

func (a *Aggregator) meanSmoothed(in func(center float64) bool) float64 {
	var sum float64
	var n int
	for i := range a.bands {
		if in(a.bands[i].CenterFrequency) {
			sum += a.bands[i].SmoothedAmplitude
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Bands returns a copy of the current band set.
func (a *Aggregator) Bands() []FrequencyBand {
	out := make([]FrequencyBand, len(a.bands))
	copy(out, a.bands)
	return out
}

// Smoothing returns α.
func (a *Aggregator) Smoothing() float64 { return a.smoothing }

// Reset zeroes amplitude and smoothing state. Bin ranges are kept.
func (a *Aggregator) Reset() {
	for i := range a.bands {
		a.bands[i].Amplitude = 0
		a.bands[i].SmoothedAmplitude = 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
