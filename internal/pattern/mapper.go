// SPDX-License-Identifier: MIT

// Package pattern derives per-band visual parameters (outline category, size,
// rotation and position) from smoothed band amplitudes.
package pattern

import (
	"spectra/internal/analysis"
	"spectra/internal/log"
)

const (
	initialRadius = 0.1
	baseRadius    = 0.05
	radiusGain    = 0.3
	followRate    = 10.0
	spinGain      = 2.0
)

var logger = log.For("pattern")

// Mapper keeps one Shape per band. It is not safe for concurrent use.
type Mapper struct {
	layout Layout
	time   float64
	shapes []Shape
}

// NewMapper returns a Mapper using layout.
func NewMapper(layout Layout) *Mapper {
	return &Mapper{layout: layout}
}

// Update advances every shape by deltaTime seconds toward its band. The shape
// set is rebuilt from scratch when the band count changes.
func (m *Mapper) Update(bands []analysis.FrequencyBand, deltaTime float64) {
	if len(bands) != len(m.shapes) {
		m.regenerate(bands)
	}
	m.time += deltaTime

	follow := min(followRate*deltaTime, 1)
	for i := range m.shapes {
		s, b := &m.shapes[i], &bands[i]

		s.Amplitude += (b.SmoothedAmplitude - s.Amplitude) * follow
		s.Radius = (baseRadius + s.Amplitude*radiusGain) * frequencyScale(s.Frequency)
		s.Rotation += deltaTime * (1 + s.Amplitude*spinGain)

		s.Base = basePosition(m.layout, i, s.Frequency)
		s.Position = drawPosition(m.layout, *s, m.time)
	}
}

func (m *Mapper) regenerate(bands []analysis.FrequencyBand) {
	logger.Debugf("regenerating shapes: %d -> %d", len(m.shapes), len(bands))
	m.shapes = make([]Shape, len(bands))
	for i, b := range bands {
		base := basePosition(m.layout, i, b.CenterFrequency)
		m.shapes[i] = Shape{
			Band:      b.Name,
			Frequency: b.CenterFrequency,
			Category:  CategoryFor(b.CenterFrequency),
			Base:      base,
			Position:  base,
			Radius:    initialRadius,
			Amplitude: b.SmoothedAmplitude,
			Active:    true,
		}
	}
}

// Shapes returns a copy of the current shapes in band order.
func (m *Mapper) Shapes() []Shape {
	out := make([]Shape, len(m.shapes))
	copy(out, m.shapes)
	return out
}

// Layout returns the active layout.
func (m *Mapper) Layout() Layout { return m.layout }

// SetLayout switches layout. Shapes move to their new slots on the next Update;
// amplitude, radius and rotation are unaffected.
func (m *Mapper) SetLayout(l Layout) {
	if l < 0 || l >= numLayouts {
		return
	}
	m.layout = l
}

// NextLayout cycles to the next layout and returns it.
func (m *Mapper) NextLayout() Layout {
	m.layout = m.layout.Next()
	return m.layout
}

// Time returns the accumulated update time in seconds.
func (m *Mapper) Time() float64 { return m.time }

// Reset drops every shape; the next Update regenerates them.
func (m *Mapper) Reset() {
	m.shapes = nil
	m.time = 0
}
