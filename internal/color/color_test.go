// SPDX-License-Identifier: MIT
package color

import (
	"math"
	"testing"

	"spectra/internal/response"

	"github.com/lucasb-eyer/go-colorful"
)

func near(a, b colorful.Color) bool {
	const eps = 1e-9
	return math.Abs(a.R-b.R) < eps && math.Abs(a.G-b.G) < eps && math.Abs(a.B-b.B) < eps
}

func TestTarget(t *testing.T) {
	levels := response.Levels{Bass: 0.5, Mid: 0.25, Treble: 1}

	tests := []struct {
		mode Mode
		want colorful.Color
	}{
		{Static, colorful.Hsv(240, 0.24, 0.12)},
		{Frequency, colorful.Color{
			R: 0.4*0.5 + 0.2*0.25 + 0.1*1,
			G: 0.1*0.5 + 0.4*0.25 + 0.2*1,
			B: 0.2*0.5 + 0.1*0.25 + 0.4*1,
		}},
		// time 0: hue 0 (red) scaled by mean level · 0.3
		{Rainbow, colorful.Color{R: levels.Average() * 0.3}},
		// time 0: sin(0) gives a half pulse
		{Pulse, colorful.Hsv(240, 0.8, 0.5*levels.Average()*0.4)},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			m := NewManager(tt.mode)
			if got := m.Target(levels); !near(got, tt.want) {
				t.Errorf("Target() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRainbowCycles(t *testing.T) {
	m := NewManager(Rainbow)
	m.Update(4) // rainbow time 2s -> hue 120, green
	got := m.Target(response.Levels{Bass: 1, Mid: 1, Treble: 1})
	if !near(got, colorful.Color{G: 0.3}) {
		t.Errorf("Target() at t=4 = %+v, want pure green at 0.3", got)
	}
	if black := m.Target(response.Levels{}); !near(black, colorful.Color{}) {
		t.Errorf("silent rainbow = %+v, want black", black)
	}
}

func TestBackgroundEases(t *testing.T) {
	m := NewManager(Frequency)
	levels := response.Levels{Bass: 1, Mid: 1, Treble: 1}
	target := m.Target(levels)

	first := m.Background(levels)
	if !near(first, scale(target, 0.032)) {
		t.Errorf("first frame = %+v, want %+v", first, scale(target, 0.032))
	}

	var bg colorful.Color
	for range 500 {
		bg = m.Background(levels)
	}
	if math.Abs(bg.R-target.R) > 1e-6 || math.Abs(bg.G-target.G) > 1e-6 || math.Abs(bg.B-target.B) > 1e-6 {
		t.Errorf("background after 500 frames = %+v, want ~%+v", bg, target)
	}

	m.Reset()
	if got := m.Background(response.Levels{}); !near(got, colorful.Color{}) {
		t.Errorf("after Reset background = %+v, want black", got)
	}
}

func TestModeCycle(t *testing.T) {
	m := NewManager(Static)
	for _, want := range []Mode{Frequency, Rainbow, Pulse, Static} {
		if got := m.NextMode(); got != want {
			t.Errorf("NextMode() = %v, want %v", got, want)
		}
	}
	if _, err := ParseMode("sepia"); err == nil {
		t.Error("ParseMode accepted an unknown mode")
	}
	if got, _ := ParseMode("PULSE"); got != Pulse {
		t.Errorf("ParseMode(PULSE) = %v", got)
	}
}

func TestShapeColor(t *testing.T) {
	tests := []struct {
		amp  float64
		want uint8
	}{
		{0, 0}, {0.5, 128}, {1, 255}, {3, 255}, {-1, 0},
	}
	for _, tt := range tests {
		c := ShapeColor(tt.amp)
		if c.R != 0xff || c.G != 0xff || c.B != 0xff || c.A != tt.want {
			t.Errorf("ShapeColor(%g) = %+v, want white alpha %d", tt.amp, c, tt.want)
		}
	}
}

func TestFrequencyColor(t *testing.T) {
	tests := []struct {
		freq float64
		want colorful.Color
	}{
		{0, red},
		{125, colorful.Color{R: 1, G: 0.25}},
		{250, yellow},
		{2000, cyan},
		{8000, violet},
		{20000, violet},
	}
	for _, tt := range tests {
		if got := FrequencyColor(tt.freq); !near(got, tt.want) {
			t.Errorf("FrequencyColor(%g) = %+v, want %+v", tt.freq, got, tt.want)
		}
	}
}
