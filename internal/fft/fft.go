// SPDX-License-Identifier: MIT

// Package fft turns a fixed-size block of mono samples into a windowed,
// one-sided magnitude and phase spectrum.
package fft

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"spectra/internal/log"
	"spectra/pkg/bitint"

	godsp "github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// DefaultSize is the block length used when no size is configured.
const DefaultSize = 4096

// ErrInvalidSize is returned when the transform size is not a power of two of at least 2.
var ErrInvalidSize = errors.New("fft size must be a power of 2")

var logger = log.For("fft")

// Spectrum is the one-sided spectrum of a single block. Magnitudes and Phases
// have SampleCount/2+1 entries. A Spectrum returned by Transform is owned by
// the caller.
type Spectrum struct {
	Magnitudes   []float64
	Phases       []float64
	SampleCount  int
	MaxMagnitude float64
}

// Bins returns the number of frequency bins.
func (s Spectrum) Bins() int { return len(s.Magnitudes) }

// Backend names a transform implementation.
type Backend string

const (
	BackendGonum Backend = "gonum"
	BackendGoDSP Backend = "godsp"
)

// ParseBackend converts a backend name (case-insensitive) to a Backend.
func ParseBackend(name string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(name))) {
	case BackendGonum, "":
		return BackendGonum, nil
	case BackendGoDSP:
		return BackendGoDSP, nil
	default:
		return BackendGonum, fmt.Errorf("unknown fft backend %q", name)
	}
}

// plan computes the N/2+1 complex coefficients of a real sequence of length N.
type plan interface {
	coefficients(dst []complex128, seq []float64) []complex128
}

type gonumPlan struct{ fft *fourier.FFT }

func (p gonumPlan) coefficients(dst []complex128, seq []float64) []complex128 {
	return p.fft.Coefficients(dst, seq)
}

// godspPlan computes the full complex transform and keeps the non-negative
// half. It allocates on every call.
type godspPlan struct{}

func (godspPlan) coefficients(dst []complex128, seq []float64) []complex128 {
	full := godsp.FFTReal(seq)
	return append(dst[:0], full[:len(seq)/2+1]...)
}

// Transformer holds the precomputed window and transform plan for one block
// size. It is not safe for concurrent use.
type Transformer struct {
	size       int
	backend    Backend
	windowType WindowFunc
	window     []float64
	plan       plan

	// scratch
	input  []float64
	coeffs []complex128
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithBackend selects the transform implementation.
func WithBackend(b Backend) Option {
	return func(t *Transformer) { t.backend = b }
}

// WithWindow selects the analysis window. The default is Hann.
func WithWindow(w WindowFunc) Option {
	return func(t *Transformer) { t.windowType = w }
}

// NewTransformer builds a Transformer for blocks of size samples. Window
// coefficients and the transform plan are computed once here.
func NewTransformer(size int, opts ...Option) (*Transformer, error) {
	if size < 2 || !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidSize, size)
	}

	t := &Transformer{
		size:       size,
		backend:    BackendGonum,
		windowType: Hann,
	}
	for _, opt := range opts {
		opt(t)
	}

	switch t.backend {
	case BackendGoDSP:
		t.plan = godspPlan{}
	case BackendGonum:
		t.plan = gonumPlan{fft: fourier.NewFFT(size)}
	default:
		return nil, fmt.Errorf("unknown fft backend %q", t.backend)
	}

	t.window = windowCoefficients(size, t.windowType)
	t.input = make([]float64, size)
	t.coeffs = make([]complex128, size/2+1)

	logger.Debugf("transformer ready (size 2^%d, backend %s, window %s)", bitint.Log2(size), t.backend, t.windowType)
	return t, nil
}

// Transform windows samples and returns a freshly allocated Spectrum. Input
// longer than Size is truncated and shorter input is zero-padded.
func (t *Transformer) Transform(samples []float32) Spectrum {
	var s Spectrum
	t.TransformInto(&s, samples)
	return s
}

// TransformInto is Transform writing into dst, reusing its slices when they
// have enough capacity. With the gonum backend a warmed-up dst makes the call
// allocation free.
func (t *Transformer) TransformInto(dst *Spectrum, samples []float32) {
	n := min(len(samples), t.size)
	for i := range n {
		t.input[i] = float64(samples[i]) * t.window[i]
	}
	clear(t.input[n:])

	t.coeffs = t.plan.coefficients(t.coeffs, t.input)

	bins := t.size/2 + 1
	dst.Magnitudes = resize(dst.Magnitudes, bins)
	dst.Phases = resize(dst.Phases, bins)
	dst.SampleCount = t.size
	dst.MaxMagnitude = 0

	for k, c := range t.coeffs[:bins] {
		re, im := real(c), imag(c)
		mag := math.Sqrt(re*re + im*im)
		dst.Magnitudes[k] = mag
		if mag == 0 {
			// atan2 of signed zeros can yield ±π.
			dst.Phases[k] = 0
		} else {
			dst.Phases[k] = math.Atan2(im, re)
		}
		// NaN compares false and would never win; let it through explicitly.
		if mag > dst.MaxMagnitude || math.IsNaN(mag) {
			dst.MaxMagnitude = mag
		}
	}
}

func resize(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}

// Size returns the block length N.
func (t *Transformer) Size() int { return t.size }

// Backend returns the transform implementation in use.
func (t *Transformer) Backend() Backend { return t.backend }

// Window returns the analysis window in use.
func (t *Transformer) Window() WindowFunc { return t.windowType }

// BinFrequency returns the frequency in Hz of bin i of a size-point transform,
// or 0 if i is outside [0, size/2].
func BinFrequency(i, size, sampleRate int) float64 {
	if size <= 0 || i < 0 || i > size/2 {
		return 0
	}
	return float64(i) * float64(sampleRate) / float64(size)
}

// FrequencyBin returns floor(f·size/sampleRate). The result is not clamped to
// Nyquist; callers that need a valid index clamp it themselves.
func FrequencyBin(f float64, size, sampleRate int) int {
	if sampleRate <= 0 {
		return 0
	}
	return int(f * float64(size) / float64(sampleRate))
}
