// SPDX-License-Identifier: MIT
package engine

import "time"

// DefaultMaxDelta caps a single frame step.
const DefaultMaxDelta = 0.1

// Timer measures frame deltas. Deltas are clamped so a stall (debugger,
// window drag, slow disk) cannot destabilise the response filters.
type Timer struct {
	maxDelta float64

	started bool
	start   time.Time
	prev    time.Time

	delta float64
	total float64

	frames   int
	fpsTimer float64
	fps      int
}

// NewTimer returns a Timer clamping deltas to maxDelta seconds
// (DefaultMaxDelta when maxDelta <= 0).
func NewTimer(maxDelta float64) *Timer {
	if maxDelta <= 0 {
		maxDelta = DefaultMaxDelta
	}
	return &Timer{maxDelta: maxDelta}
}

// Start resets the timer at now.
func (t *Timer) Start(now time.Time) {
	*t = Timer{maxDelta: t.maxDelta, started: true, start: now, prev: now}
}

// Tick records a frame at now and returns the clamped delta in seconds. The
// first Tick after construction starts the timer and returns 0.
func (t *Timer) Tick(now time.Time) float64 {
	if !t.started {
		t.Start(now)
		return 0
	}

	t.delta = min(max(now.Sub(t.prev).Seconds(), 0), t.maxDelta)
	t.total = now.Sub(t.start).Seconds()
	t.prev = now

	t.frames++
	t.fpsTimer += t.delta
	if t.fpsTimer >= 1 {
		t.fps = t.frames
		t.frames = 0
		t.fpsTimer = 0
	}
	return t.delta
}

// Delta returns the last clamped delta in seconds.
func (t *Timer) Delta() float64 { return t.delta }

// Total returns unclamped seconds since Start.
func (t *Timer) Total() float64 { return t.total }

// FPS returns the frame count of the last full second.
func (t *Timer) FPS() int { return t.fps }
