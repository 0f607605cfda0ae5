// SPDX-License-Identifier: MIT
package audio

import "sync"

// Ring is a fixed-size window over the newest mono samples. The capture
// callback writes; the frame loop reads.
type Ring struct {
	mu     sync.Mutex
	buf    []float32
	pos    int // next write index
	filled int
}

// NewRing returns a Ring holding size samples.
func NewRing(size int) *Ring {
	return &Ring{buf: make([]float32, max(size, 1))}
}

// Write appends samples, overwriting the oldest.
func (r *Ring) Write(samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(samples) > len(r.buf) {
		samples = samples[len(samples)-len(r.buf):]
	}
	n := copy(r.buf[r.pos:], samples)
	copy(r.buf, samples[n:])
	r.pos = (r.pos + len(samples)) % len(r.buf)
	r.filled = min(r.filled+len(samples), len(r.buf))
}

// Latest copies the newest min(len(dst), available) samples into dst, oldest
// first, and returns the count.
func (r *Ring) Latest(dst []float32) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := min(len(dst), r.filled)
	start := (r.pos - n + len(r.buf)) % len(r.buf)
	m := copy(dst[:n], r.buf[start:])
	copy(dst[m:n], r.buf[:n-m])
	return n
}

// Size returns the capacity in samples.
func (r *Ring) Size() int { return len(r.buf) }

// Reset discards all samples.
func (r *Ring) Reset() {
	r.mu.Lock()
	r.pos, r.filled = 0, 0
	r.mu.Unlock()
}
