// SPDX-License-Identifier: MIT
package pattern

import (
	"fmt"
	"math"
	"strings"
)

// Category is the outline drawn for a band.
type Category int

const (
	Circle Category = iota
	Triangle
	Square
	Pentagon
	Hexagon
	Octagon
	Star
)

var categoryNames = [...]string{
	Circle:   "circle",
	Triangle: "triangle",
	Square:   "square",
	Pentagon: "pentagon",
	Hexagon:  "hexagon",
	Octagon:  "octagon",
	Star:     "star",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// MarshalText encodes the category by name.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Sides is the number of polygon corners, 0 for a circle and 5 points for a star.
func (c Category) Sides() int {
	switch c {
	case Triangle:
		return 3
	case Square:
		return 4
	case Pentagon, Star:
		return 5
	case Hexagon:
		return 6
	case Octagon:
		return 8
	default:
		return 0
	}
}

// categoryThresholds maps a band's centre frequency to its category: the first
// entry whose threshold exceeds the frequency wins, Star otherwise.
var categoryThresholds = []struct {
	below    float64
	category Category
}{
	{60, Circle},
	{250, Square},
	{500, Triangle},
	{2000, Pentagon},
	{4000, Hexagon},
	{8000, Octagon},
}

// CategoryFor returns the category for a centre frequency in Hz.
func CategoryFor(frequency float64) Category {
	for _, t := range categoryThresholds {
		if frequency < t.below {
			return t.category
		}
	}
	return Star
}

// frequencyScale enlarges low-frequency shapes.
func frequencyScale(frequency float64) float64 {
	switch {
	case frequency < 100:
		return 1.5
	case frequency < 250:
		return 1.3
	case frequency < 2000:
		return 1.0
	default:
		return 0.8
	}
}

// Point is a position in normalised device coordinates, [-1, 1] on both axes
// with y up.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape is the visual state of one band.
type Shape struct {
	Band      string   `json:"band"`
	Frequency float64  `json:"frequency"`
	Category  Category `json:"category"`
	// Base is the layout slot; Position is where the shape is drawn this frame.
	Base      Point   `json:"-"`
	Position  Point   `json:"position"`
	Radius    float64 `json:"radius"`
	Rotation  float64 `json:"rotation"`
	Amplitude float64 `json:"amplitude"`
	Active    bool    `json:"active"`
}

// visibleAmplitude is the level below which a shape is not drawn.
const visibleAmplitude = 0.01

// Visible reports whether renderers should draw the shape.
func (s Shape) Visible() bool {
	return s.Active && s.Amplitude > visibleAmplitude
}

// Layout selects how shapes are placed.
type Layout int

const (
	Grid Layout = iota
	Circular
	LogHorizontal

	numLayouts
)

func (l Layout) String() string {
	switch l {
	case Grid:
		return "grid"
	case Circular:
		return "circular"
	case LogHorizontal:
		return "log-horizontal"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// Next cycles grid, circular, log-horizontal.
func (l Layout) Next() Layout {
	return (l + 1) % numLayouts
}

// ParseLayout converts a layout name (case-insensitive) to a Layout.
func ParseLayout(name string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "grid", "":
		return Grid, nil
	case "circular", "circle":
		return Circular, nil
	case "log-horizontal", "loghorizontal", "horizontal":
		return LogHorizontal, nil
	default:
		return Grid, fmt.Errorf("unknown layout %q", name)
	}
}

const (
	gridColumns = 8
	gridStep    = 0.2
	gridLeft    = -0.8
	gridTop     = 0.8

	ringSlots  = 16
	ringRadius = 0.7

	orbitSpeed     = 0.5
	orbitFreqPhase = 0.001
	orbitDistance  = 0.6
	orbitSwell     = 0.2

	logMinHz  = 20.0
	logMaxHz  = 20000.0
	logLeft   = -0.9
	logExtent = 1.8
)

// basePosition is the layout slot of the band at index.
func basePosition(l Layout, index int, frequency float64) Point {
	switch l {
	case Grid:
		row, col := index/gridColumns, index%gridColumns
		return Point{X: gridLeft + float64(col)*gridStep, Y: gridTop - float64(row)*gridStep}
	case Circular:
		angle := float64(index) / ringSlots * 2 * math.Pi
		return Point{X: ringRadius * math.Cos(angle), Y: ringRadius * math.Sin(angle)}
	case LogHorizontal:
		norm := 0.0
		if frequency > 0 {
			norm = math.Log(frequency/logMinHz) / math.Log(logMaxHz/logMinHz)
		}
		norm = math.Max(0, math.Min(norm, 1))
		return Point{X: logLeft + norm*logExtent}
	default:
		return Point{}
	}
}

// drawPosition is where a shape is drawn at time t. In the circular layout
// audible shapes leave their slot and orbit, swelling outward with amplitude.
func drawPosition(l Layout, s Shape, t float64) Point {
	if l != Circular || s.Amplitude <= visibleAmplitude {
		return s.Base
	}
	angle := t*orbitSpeed + s.Frequency*orbitFreqPhase
	dist := orbitDistance + s.Amplitude*orbitSwell
	return Point{X: math.Cos(angle) * dist, Y: math.Sin(angle) * dist}
}
