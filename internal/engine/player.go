// SPDX-License-Identifier: MIT
package engine

import (
	"time"

	"spectra/internal/decode"
)

// Player feeds a decoded track through a Pipeline one frame at a time. Each
// frame analyses the block starting at the cursor and then advances the
// cursor by sampleRate/frameRate samples. It is not safe for concurrent use.
type Player struct {
	pipeline  *Pipeline
	frameRate int

	track           *decode.Track
	samplesPerFrame int
	cursor          int
	paused          bool
	loop            bool
	loops           int
}

// NewPlayer returns a looping Player with no track loaded.
func NewPlayer(p *Pipeline, frameRate int) *Player {
	if frameRate <= 0 {
		frameRate = 60
	}
	return &Player{pipeline: p, frameRate: frameRate, loop: true}
}

// Load replaces the current track, rewinds and resets the pipeline.
func (pl *Player) Load(t *decode.Track) {
	pl.track = t
	pl.samplesPerFrame = max(1, t.SampleRate/pl.frameRate)
	pl.cursor = 0
	pl.loops = 0
	pl.paused = false
	pl.pipeline.Reset()
	logger.Infof("loaded %s (%s, %d Hz, %d samples per frame)", t.Name(), t.Duration().Round(time.Millisecond), t.SampleRate, pl.samplesPerFrame)
}

// SetLoop selects whether the end of the track rewinds and keeps playing
// (the default) or rewinds and pauses.
func (pl *Player) SetLoop(loop bool) { pl.loop = loop }

// Next produces the frame at the cursor and advances. It returns false when
// nothing is loaded or playback is paused.
func (pl *Player) Next(deltaTime float64) (Frame, bool) {
	if pl.track == nil || pl.paused {
		return Frame{}, false
	}

	samples := pl.track.Samples
	if pl.cursor+pl.samplesPerFrame >= len(samples) {
		pl.rewind()
		if !pl.loop {
			pl.paused = true
			return Frame{}, false
		}
	}

	end := min(pl.cursor+pl.pipeline.FFTSize(), len(samples))
	frame := pl.pipeline.Process(samples[pl.cursor:end], pl.track.SampleRate, deltaTime)
	frame.Position = pl.Position()
	pl.cursor += pl.samplesPerFrame
	return frame, true
}

func (pl *Player) rewind() {
	pl.cursor = 0
	pl.loops++
	pl.pipeline.Reset()
	logger.Debugf("end of track, rewinding (loop %d)", pl.loops)
}

// Seek moves the cursor to pos, clamped to the track, and resets the pipeline
// so stale smoothing does not drag the new position.
func (pl *Player) Seek(pos time.Duration) {
	if pl.track == nil {
		return
	}
	sample := int(pos.Seconds() * float64(pl.track.SampleRate))
	pl.cursor = max(0, min(sample, len(pl.track.Samples)-1))
	pl.pipeline.Reset()
}

// SeekBy moves the cursor relative to its current position.
func (pl *Player) SeekBy(d time.Duration) { pl.Seek(pl.Position() + d) }

// Restart seeks to the beginning.
func (pl *Player) Restart() { pl.Seek(0) }

// Pause stops frame production.
func (pl *Player) Pause() { pl.paused = true }

// Resume restarts frame production.
func (pl *Player) Resume() { pl.paused = false }

// TogglePause flips between paused and playing and reports whether playback
// is now paused.
func (pl *Player) TogglePause() bool {
	pl.paused = !pl.paused
	return pl.paused
}

// Paused reports whether playback is paused.
func (pl *Player) Paused() bool { return pl.paused }

// Track returns the loaded track, or nil.
func (pl *Player) Track() *decode.Track { return pl.track }

// Loops returns how many times the track has wrapped.
func (pl *Player) Loops() int { return pl.loops }

// SamplesPerFrame returns the cursor advance per frame.
func (pl *Player) SamplesPerFrame() int { return pl.samplesPerFrame }

// Position returns the cursor as a playback time.
func (pl *Player) Position() time.Duration {
	if pl.track == nil || pl.track.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(pl.cursor) / float64(pl.track.SampleRate) * float64(time.Second))
}

// Duration returns the length of the loaded track.
func (pl *Player) Duration() time.Duration {
	if pl.track == nil {
		return 0
	}
	return pl.track.Duration()
}

// Progress returns the cursor position in [0, 1].
func (pl *Player) Progress() float64 {
	if pl.track == nil || len(pl.track.Samples) == 0 {
		return 0
	}
	return float64(pl.cursor) / float64(len(pl.track.Samples))
}

// Pipeline returns the pipeline the player drives.
func (pl *Player) Pipeline() *Pipeline { return pl.pipeline }
