// SPDX-License-Identifier: MIT
package response

import (
	"fmt"
	"strings"

	"spectra/internal/log"

	"github.com/charmbracelet/harmonica"
)

// Default response times in seconds. Bass is slow, treble fast.
const (
	DefaultBassResponse   = 0.2
	DefaultMidResponse    = 0.1
	DefaultTrebleResponse = 0.05

	DefaultStiffness     = 120.0
	DefaultDamping       = 0.02
	DefaultHarmonicaFreq = 6.0
	DefaultHarmonicaDamp = 0.6
)

var logger = log.For("response")

// Channel identifies one summary level.
type Channel int

const (
	Bass Channel = iota
	Mid
	Treble

	numChannels
)

func (c Channel) String() string {
	switch c {
	case Bass:
		return "bass"
	case Mid:
		return "mid"
	case Treble:
		return "treble"
	default:
		return fmt.Sprintf("Channel(%d)", int(c))
	}
}

// Levels holds one value per channel.
type Levels struct {
	Bass   float64 `json:"bass"`
	Mid    float64 `json:"mid"`
	Treble float64 `json:"treble"`
}

// Get returns the value for ch.
func (l Levels) Get(ch Channel) float64 {
	switch ch {
	case Bass:
		return l.Bass
	case Mid:
		return l.Mid
	case Treble:
		return l.Treble
	}
	return 0
}

// Average is the mean of the three levels.
func (l Levels) Average() float64 {
	return (l.Bass + l.Mid + l.Treble) / 3
}

// Mode selects the filter Shape applies.
type Mode int

const (
	// Critical uses SmoothDamp with the channel's response time.
	Critical Mode = iota
	// Spring uses SpringDamp with shared stiffness and damping.
	Spring
	// Harmonica uses a damped harmonic oscillator per channel.
	Harmonica
)

func (m Mode) String() string {
	switch m {
	case Critical:
		return "critical"
	case Spring:
		return "spring"
	case Harmonica:
		return "harmonica"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a mode name (case-insensitive) to a Mode.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "critical", "":
		return Critical, nil
	case "spring":
		return Spring, nil
	case "harmonica":
		return Harmonica, nil
	default:
		return Critical, fmt.Errorf("unknown response mode %q", name)
	}
}

// State is the filter state of one channel.
type State struct {
	Value    float64
	Velocity float64
}

// Shaper owns the per-channel filter state. It is not safe for concurrent use.
type Shaper struct {
	mode          Mode
	responseTimes [numChannels]float64
	states        [numChannels]State

	stiffness float64
	damping   float64

	harmonicaFreq float64
	harmonicaDamp float64
	spring        harmonica.Spring
	springDelta   float64
}

// Option configures a Shaper.
type Option func(*Shaper)

// WithMode selects the filter.
func WithMode(m Mode) Option {
	return func(s *Shaper) { s.mode = m }
}

// WithResponseTimes sets per-channel response times in seconds.
// Non-positive values keep the default.
func WithResponseTimes(bass, mid, treble float64) Option {
	return func(s *Shaper) {
		for ch, rt := range [numChannels]float64{bass, mid, treble} {
			if rt > 0 {
				s.responseTimes[ch] = rt
			}
		}
	}
}

// WithSpring sets the stiffness and per-second velocity retention for Spring mode.
func WithSpring(stiffness, damping float64) Option {
	return func(s *Shaper) {
		s.stiffness, s.damping = stiffness, damping
	}
}

// WithHarmonica sets the angular frequency and damping ratio for Harmonica mode.
func WithHarmonica(angularFreq, dampingRatio float64) Option {
	return func(s *Shaper) {
		s.harmonicaFreq, s.harmonicaDamp = angularFreq, dampingRatio
	}
}

// NewShaper returns a Shaper with all channels at rest.
func NewShaper(opts ...Option) *Shaper {
	s := &Shaper{
		mode:          Critical,
		responseTimes: [numChannels]float64{DefaultBassResponse, DefaultMidResponse, DefaultTrebleResponse},
		stiffness:     DefaultStiffness,
		damping:       DefaultDamping,
		harmonicaFreq: DefaultHarmonicaFreq,
		harmonicaDamp: DefaultHarmonicaDamp,
	}
	for _, opt := range opts {
		opt(s)
	}
	logger.Debugf("shaper mode %s, response times %v", s.mode, s.responseTimes)
	return s
}

// Shape advances every channel toward its target level by deltaTime seconds
// and returns the new values.
func (s *Shaper) Shape(targets Levels, deltaTime float64) Levels {
	return Levels{
		Bass:   s.ShapeChannel(Bass, targets.Bass, deltaTime),
		Mid:    s.ShapeChannel(Mid, targets.Mid, deltaTime),
		Treble: s.ShapeChannel(Treble, targets.Treble, deltaTime),
	}
}

// ShapeChannel advances a single channel.
func (s *Shaper) ShapeChannel(ch Channel, target, deltaTime float64) float64 {
	if ch < 0 || ch >= numChannels {
		return target
	}
	st := &s.states[ch]

	switch s.mode {
	case Spring:
		st.Value = SpringDamp(st.Value, target, &st.Velocity, s.stiffness, s.damping, deltaTime)
	case Harmonica:
		// harmonica bakes the time step into its coefficients.
		if deltaTime != s.springDelta {
			s.spring = harmonica.NewSpring(deltaTime, s.harmonicaFreq, s.harmonicaDamp)
			s.springDelta = deltaTime
		}
		st.Value, st.Velocity = s.spring.Update(st.Value, st.Velocity, target)
	default:
		st.Value = SmoothDamp(st.Value, target, &st.Velocity, s.responseTimes[ch], deltaTime)
	}
	return st.Value
}

// State returns the filter state of ch.
func (s *Shaper) State(ch Channel) State {
	if ch < 0 || ch >= numChannels {
		return State{}
	}
	return s.states[ch]
}

// Values returns the current value of every channel.
func (s *Shaper) Values() Levels {
	return Levels{
		Bass:   s.states[Bass].Value,
		Mid:    s.states[Mid].Value,
		Treble: s.states[Treble].Value,
	}
}

// ResponseTime returns the response time of ch.
func (s *Shaper) ResponseTime(ch Channel) float64 {
	if ch < 0 || ch >= numChannels {
		return 0
	}
	return s.responseTimes[ch]
}

// Mode returns the active filter.
func (s *Shaper) Mode() Mode { return s.mode }

// SetMode switches filters. Channel state is kept.
func (s *Shaper) SetMode(m Mode) { s.mode = m }

// Reset zeroes every channel. Call it when the source changes or playback
// seeks, otherwise stale velocity drags the new signal.
func (s *Shaper) Reset() {
	s.states = [numChannels]State{}
}
