// SPDX-License-Identifier: MIT
package engine

import (
	"context"
	"errors"
	"time"

	"spectra/internal/decode"
	"spectra/internal/transport"
)

// Source produces frames on demand. A Source that falls behind simply yields
// fewer frames; nothing is queued.
type Source interface {
	Next(deltaTime float64) (Frame, bool)
}

// Capture is a live sample source.
type Capture interface {
	// Latest copies the most recent len(dst) mono samples into dst and
	// returns how many were available.
	Latest(dst []float32) int
	SampleRate() int
}

// LiveSource analyses the newest block of a Capture on every frame.
type LiveSource struct {
	pipeline *Pipeline
	capture  Capture
	block    []float32
}

// NewLiveSource returns a Source reading from c.
func NewLiveSource(p *Pipeline, c Capture) *LiveSource {
	return &LiveSource{pipeline: p, capture: c, block: make([]float32, p.FFTSize())}
}

// Next implements Source.
func (l *LiveSource) Next(deltaTime float64) (Frame, bool) {
	n := l.capture.Latest(l.block)
	return l.pipeline.Process(l.block[:n], l.capture.SampleRate(), deltaTime), true
}

// Runner ticks a Source at a fixed frame rate and hands every frame to its
// transports.
type Runner struct {
	source   Source
	timer    *Timer
	interval time.Duration
	sinks    []transport.Transport
	onFrame  func(Frame)
}

// NewRunner returns a Runner ticking frameRate times per second.
func NewRunner(src Source, frameRate int, maxDelta float64, sinks ...transport.Transport) *Runner {
	if frameRate <= 0 {
		frameRate = 60
	}
	return &Runner{
		source:   src,
		timer:    NewTimer(maxDelta),
		interval: time.Second / time.Duration(frameRate),
		sinks:    sinks,
	}
}

// OnFrame registers a callback run after the transports for every frame.
func (r *Runner) OnFrame(fn func(Frame)) { r.onFrame = fn }

// Run ticks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.timer.Start(time.Now())
	logger.Infof("runner started (%s per frame, %d transports)", r.interval, len(r.sinks))

	for {
		select {
		case <-ctx.Done():
			logger.Infof("runner stopped after %.1fs", r.timer.Total())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case now := <-ticker.C:
			frame, ok := r.source.Next(r.timer.Tick(now))
			if !ok {
				continue
			}
			r.publish(frame)
		}
	}
}

func (r *Runner) publish(frame Frame) {
	for _, s := range r.sinks {
		if err := s.Send(frame); err != nil {
			logger.Warnf("transport send failed: %v", err)
		}
	}
	if r.onFrame != nil {
		r.onFrame(frame)
	}
}

// FPS returns the measured frame rate.
func (r *Runner) FPS() int { return r.timer.FPS() }

// Analyze runs the whole track through p once, as fast as possible, with a
// fixed step of 1/frameRate seconds, calling fn for every frame. The pipeline
// is reset first. It returns the number of frames produced.
func Analyze(ctx context.Context, p *Pipeline, t *decode.Track, frameRate int, fn func(Frame) error) (int, error) {
	if frameRate <= 0 {
		frameRate = 60
	}
	step := max(1, t.SampleRate/frameRate)
	deltaTime := 1 / float64(frameRate)

	p.Reset()
	frames := 0
	for cursor := 0; cursor+step < len(t.Samples); cursor += step {
		if err := ctx.Err(); err != nil {
			return frames, err
		}
		end := min(cursor+p.FFTSize(), len(t.Samples))
		frame := p.Process(t.Samples[cursor:end], t.SampleRate, deltaTime)
		frame.Position = time.Duration(float64(cursor) / float64(t.SampleRate) * float64(time.Second))
		frames++
		if err := fn(frame); err != nil {
			return frames, err
		}
	}
	return frames, nil
}

var errFound = errors.New("frame found")

// FrameAt analyses t from the start up to position at and returns the frame
// there, so smoothing state is the same as during playback. Positions past
// the end return the last frame.
func FrameAt(ctx context.Context, p *Pipeline, t *decode.Track, frameRate int, at time.Duration) (Frame, error) {
	var last Frame
	n, err := Analyze(ctx, p, t, frameRate, func(f Frame) error {
		last = f
		if f.Position >= at {
			return errFound
		}
		return nil
	})
	if err != nil && !errors.Is(err, errFound) {
		return Frame{}, err
	}
	if n == 0 {
		return Frame{}, errors.New("track is shorter than one frame")
	}
	return last, nil
}
