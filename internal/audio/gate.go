// SPDX-License-Identifier: MIT
package audio

import "math"

func (c *Capture) EnableGate() {
	c.gateEnabled.Store(true)
}

func (c *Capture) DisableGate() {
	c.gateEnabled.Store(false)
}

// SetGateThreshold adjusts the noise gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (c *Capture) SetGateThreshold(threshold float64) {
	threshold = math.Max(0, math.Min(threshold, 1))
	c.gateThreshold.Store(math.Float64bits(threshold))
}

// GateThreshold returns the current noise gate threshold.
func (c *Capture) GateThreshold() float64 {
	return math.Float64frombits(c.gateThreshold.Load())
}

// gateOpen reports whether buffer should be analysed.
func (c *Capture) gateOpen(buffer []float32) bool {
	if !c.gateEnabled.Load() {
		return true
	}
	return float64(peak(buffer)) > c.GateThreshold()
}

// peak returns the largest absolute sample.
func peak(buffer []float32) float32 {
	var p float32
	for _, s := range buffer {
		p = max(p, s, -s)
	}
	return p
}
