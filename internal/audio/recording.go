// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// RecordingFilename names a capture started at t inside dir.
func RecordingFilename(dir string, t time.Time) string {
	return filepath.Join(dir, "spectra-"+t.Format("20060102-150405")+".wav")
}

// StartRecording writes the raw interleaved input to a WAV file at filename.
func (c *Capture) StartRecording(filename string) error {
	c.recMu.Lock()
	defer c.recMu.Unlock()

	if c.isRecording.Load() {
		return errors.New("already recording")
	}
	if c.bitDepth != 16 && c.bitDepth != 24 {
		return fmt.Errorf("unsupported recording bit depth %d", c.bitDepth)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating recording: %w", err)
	}
	c.outputFile = file
	c.wavEncoder = wav.NewEncoder(file, c.SampleRate(), c.bitDepth, c.cfg.InputChannels, 1)
	c.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: c.cfg.InputChannels,
			SampleRate:  c.SampleRate(),
		},
		Data:           make([]int, len(c.inputBuffer)),
		SourceBitDepth: c.bitDepth,
	}

	c.isRecording.Store(true)
	logger.Infof("recording to %s (%d-bit)", filename, c.bitDepth)
	return nil
}

// record converts buffer to integer PCM and appends it to the file.
func (c *Capture) record(buffer []float32) {
	c.recMu.Lock()
	defer c.recMu.Unlock()
	if c.wavEncoder == nil {
		return
	}

	scale := float32(int(1)<<(c.bitDepth-1) - 1)
	data := c.sampleBuf.Data[:len(buffer)]
	for i, s := range buffer {
		data[i] = int(max(-1, min(s, 1)) * scale)
	}
	c.sampleBuf.Data = data

	if err := c.wavEncoder.Write(c.sampleBuf); err != nil {
		logger.Errorf("writing WAV data: %v", err)
	}
}

// StopRecording finalises the WAV header and closes the file. It is a no-op
// when not recording.
func (c *Capture) StopRecording() error {
	c.recMu.Lock()
	defer c.recMu.Unlock()

	if !c.isRecording.Swap(false) {
		return nil
	}

	var errs []error
	if c.wavEncoder != nil {
		if err := c.wavEncoder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing WAV encoder: %w", err))
		}
		c.wavEncoder = nil
	}
	if c.outputFile != nil {
		name := c.outputFile.Name()
		if err := c.outputFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing recording: %w", err))
		}
		c.outputFile = nil
		logger.Infof("recording saved to %s", name)
	}
	return errors.Join(errs...)
}

// Recording reports whether input is being written to disk.
func (c *Capture) Recording() bool { return c.isRecording.Load() }
