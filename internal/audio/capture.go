// SPDX-License-Identifier: MIT
/*
Package audio captures live input with PortAudio and keeps the newest mono
samples in a ring buffer for the frame loop:
  - float32 stream callback, mixed down to mono without allocating
  - noise gate on the buffer peak; gated buffers are analysed as silence
  - optional WAV recording of the raw interleaved input

The callback and the frame loop share only the Ring and atomic flags.
*/
package audio

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"spectra/internal/config"
	"spectra/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
)

var logger = log.For("audio")

// Capture is a live input stream. It implements engine.Capture.
type Capture struct {
	cfg      config.AudioConfig
	bitDepth int

	// Audio input handling.
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	inputBuffer []float32 // interleaved copy of the callback input
	mono        []float32
	ring        *Ring
	buffers     atomic.Uint64
	gatedCount  atomic.Uint64

	// Noise gate on the absolute peak, in [0, 1].
	gateEnabled   atomic.Bool
	gateThreshold atomic.Uint64 // float64 bits

	// Recording state; recMu guards the encoder between the callback and Stop.
	isRecording atomic.Bool
	recMu       sync.Mutex
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer
}

// NewCapture resolves the configured input device. ringSize is the number
// of mono samples kept, at least one transform block. PortAudio must be
// initialised.
func NewCapture(cfg *config.Config, ringSize int) (*Capture, error) {
	device, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	c := newCapture(cfg.Audio, cfg.Recording.BitDepth, ringSize)
	c.inputDevice = device
	if cfg.Audio.LowLatency {
		c.inputLatency = device.DefaultLowInputLatency
	} else {
		c.inputLatency = device.DefaultHighInputLatency
	}
	logger.Infof("input device %q (%d ch, latency %s)", device.Name, cfg.Audio.InputChannels, c.inputLatency)
	return c, nil
}

func newCapture(cfg config.AudioConfig, bitDepth, ringSize int) *Capture {
	channels := max(cfg.InputChannels, 1)
	cfg.InputChannels = channels
	c := &Capture{
		cfg:         cfg,
		bitDepth:    bitDepth,
		inputBuffer: make([]float32, cfg.FramesPerBuffer*channels),
		mono:        make([]float32, cfg.FramesPerBuffer),
		ring:        NewRing(max(ringSize, cfg.FramesPerBuffer*4)),
	}
	// A zero threshold turns the gate off.
	if cfg.GateThreshold > 0 {
		c.EnableGate()
	} else {
		c.DisableGate()
	}
	c.SetGateThreshold(cfg.GateThreshold)
	return c
}

// SampleRate returns the stream sample rate in Hz.
func (c *Capture) SampleRate() int { return int(c.cfg.SampleRate) }

// Latest copies the newest mono samples into dst.
func (c *Capture) Latest(dst []float32) int { return c.ring.Latest(dst) }

// Stats returns how many buffers were received and how many were gated.
func (c *Capture) Stats() (buffers, gated uint64) {
	return c.buffers.Load(), c.gatedCount.Load()
}

// Start opens and starts the input stream.
func (c *Capture) Start() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: c.cfg.InputChannels,
			Device:   c.inputDevice,
			Latency:  c.inputLatency,
		},
		FramesPerBuffer: c.cfg.FramesPerBuffer,
		SampleRate:      c.cfg.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, c.processInputStream)
	if err != nil {
		return fmt.Errorf("opening input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("starting input stream: %w", err)
	}
	c.inputStream = stream
	logger.Infof("capture started at %.0f Hz, %d frames per buffer", c.cfg.SampleRate, c.cfg.FramesPerBuffer)
	return nil
}

// Stop stops and closes the input stream.
func (c *Capture) Stop() error {
	if c.inputStream == nil {
		return nil
	}
	if err := c.inputStream.Stop(); err != nil {
		return err
	}
	if err := c.inputStream.Close(); err != nil {
		return err
	}
	c.inputStream = nil
	return nil
}

// processInputStream is the PortAudio callback. It uses pre-allocated
// buffers only.
func (c *Capture) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	n := copy(c.inputBuffer, in)
	c.process(c.inputBuffer[:n])
}

func (c *Capture) process(buffer []float32) {
	c.buffers.Add(1)
	channels := c.cfg.InputChannels
	frames := min(len(buffer)/channels, len(c.mono))
	mono := c.mono[:frames]

	for i := range mono {
		var sum float32
		for ch := range channels {
			sum += buffer[i*channels+ch]
		}
		mono[i] = sum / float32(channels)
	}

	if !c.gateOpen(mono) {
		clear(mono)
		c.gatedCount.Add(1)
	}
	c.ring.Write(mono)

	if c.isRecording.Load() {
		c.record(buffer)
	}
}

// Close stops any recording and the input stream.
func (c *Capture) Close() error {
	if err := c.StopRecording(); err != nil {
		return err
	}
	return c.Stop()
}
