// SPDX-License-Identifier: MIT

// Package color picks the background colour from shaped bass, mid and treble
// levels, and the colours renderers use for shapes and band bars.
package color

import (
	"fmt"
	stdcolor "image/color"
	"math"
	"strings"

	"spectra/internal/response"

	"github.com/lucasb-eyer/go-colorful"
)

// Mode selects how the background reacts to the levels.
type Mode int

const (
	Static Mode = iota
	Frequency
	Rainbow
	Pulse

	numModes
)

func (m Mode) String() string {
	switch m {
	case Static:
		return "static"
	case Frequency:
		return "frequency"
	case Rainbow:
		return "rainbow"
	case Pulse:
		return "pulse"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Next cycles through the modes.
func (m Mode) Next() Mode { return (m + 1) % numModes }

// ParseMode converts a mode name (case-insensitive) to a Mode.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "static":
		return Static, nil
	case "frequency":
		return Frequency, nil
	case "rainbow", "":
		return Rainbow, nil
	case "pulse":
		return Pulse, nil
	default:
		return Rainbow, fmt.Errorf("unknown color mode %q", name)
	}
}

const (
	baseHue        = 240.0 // blue
	baseSaturation = 0.8
	baseBrightness = 0.6

	rainbowSpeed    = 0.5
	rainbowHuePerS  = 60.0 // full cycle every 6 s of rainbow time
	rainbowStrength = 0.3

	pulseRate     = 3.0
	pulseStrength = 0.4

	// Fraction of the remaining distance covered each frame.
	backgroundFollow = 2 * 0.016
)

var (
	bassTint   = colorful.Color{R: 0.4, G: 0.1, B: 0.2}
	midTint    = colorful.Color{R: 0.2, G: 0.4, B: 0.1}
	trebleTint = colorful.Color{R: 0.1, G: 0.2, B: 0.4}
)

// Manager tracks colour time and the displayed background. It is not safe for
// concurrent use.
type Manager struct {
	mode       Mode
	time       float64
	background colorful.Color
}

// NewManager returns a Manager with a black background.
func NewManager(mode Mode) *Manager {
	return &Manager{mode: mode}
}

// Mode returns the active mode.
func (m *Manager) Mode() Mode { return m.mode }

// SetMode switches mode. The background eases toward the new target.
func (m *Manager) SetMode(mode Mode) {
	if mode >= 0 && mode < numModes {
		m.mode = mode
	}
}

// NextMode cycles to the next mode and returns it.
func (m *Manager) NextMode() Mode {
	m.mode = m.mode.Next()
	return m.mode
}

// Update advances colour time.
func (m *Manager) Update(deltaTime float64) {
	m.time += deltaTime
}

// Target is the background colour the levels call for right now.
func (m *Manager) Target(l response.Levels) colorful.Color {
	switch m.mode {
	case Static:
		return colorful.Hsv(baseHue, baseSaturation*0.3, baseBrightness*0.2)
	case Frequency:
		return colorful.Color{
			R: bassTint.R*l.Bass + midTint.R*l.Mid + trebleTint.R*l.Treble,
			G: bassTint.G*l.Bass + midTint.G*l.Mid + trebleTint.G*l.Treble,
			B: bassTint.B*l.Bass + midTint.B*l.Mid + trebleTint.B*l.Treble,
		}
	case Rainbow:
		return scale(rainbow(m.time*rainbowSpeed), l.Average()*rainbowStrength)
	case Pulse:
		pulse := math.Sin(m.time*pulseRate)*0.5 + 0.5
		return colorful.Hsv(baseHue, baseSaturation, pulse*l.Average()*pulseStrength)
	default:
		return colorful.Color{}
	}
}

// Background eases the displayed background toward Target and returns it.
// Call once per frame.
func (m *Manager) Background(l response.Levels) colorful.Color {
	m.background = m.background.BlendRgb(m.Target(l), backgroundFollow)
	return m.background
}

// Reset returns to a black background at time zero.
func (m *Manager) Reset() {
	m.time = 0
	m.background = colorful.Color{}
}

// ShapeColor is the outline colour for a shape: white, with the shape's
// amplitude as alpha.
func ShapeColor(amplitude float64) stdcolor.NRGBA {
	a := math.Max(0, math.Min(amplitude, 1))
	return stdcolor.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: uint8(math.Round(a * 0xff))}
}

var (
	red    = colorful.Color{R: 1, G: 0, B: 0}
	orange = colorful.Color{R: 1, G: 0.5, B: 0}
	yellow = colorful.Color{R: 1, G: 1, B: 0}
	green  = colorful.Color{R: 0, G: 1, B: 0}
	cyan   = colorful.Color{R: 0, G: 1, B: 1}
	violet = colorful.Color{R: 0.5, G: 0, B: 1}
)

// FrequencyColor maps a frequency onto a gradient: red to orange across the
// bass, yellow to green across the mids and cyan to violet up to 8 kHz.
func FrequencyColor(frequency float64) colorful.Color {
	switch {
	case frequency < 250:
		return red.BlendRgb(orange, math.Max(0, frequency/250))
	case frequency < 2000:
		return yellow.BlendRgb(green, (frequency-250)/(2000-250))
	default:
		return cyan.BlendRgb(violet, math.Min(1, (frequency-2000)/6000))
	}
}

func rainbow(t float64) colorful.Color {
	hue := math.Mod(t*rainbowHuePerS, 360)
	if hue < 0 {
		hue += 360
	}
	return colorful.Hsv(hue, 1, 1)
}

func scale(c colorful.Color, k float64) colorful.Color {
	return colorful.Color{R: c.R * k, G: c.G * k, B: c.B * k}
}
