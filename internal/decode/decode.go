// SPDX-License-Identifier: MIT

// Package decode loads audio files into mono float32 tracks for analysis.
// This is the validation boundary: decoded samples are finite and in [-1, 1].
package decode

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"spectra/internal/log"
)

// ErrUnsupportedFormat is returned for file extensions with no decoder.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

var logger = log.For("decode")

// Track is a fully decoded, mono audio file.
type Track struct {
	Path       string
	Format     string
	Samples    []float32 // mono, finite, [-1, 1]
	SampleRate int
	Channels   int // channel count of the source before mixing
	BitDepth   int // 0 when the codec has no fixed depth
	Title      string
	Artist     string
	Album      string
}

// Duration returns the playing time of the track.
func (t *Track) Duration() time.Duration {
	if t.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(t.Samples)) / float64(t.SampleRate) * float64(time.Second))
}

// Name is the title if known, otherwise the file name without extension.
func (t *Track) Name() string {
	if t.Title != "" {
		if t.Artist != "" {
			return t.Artist + " - " + t.Title
		}
		return t.Title
	}
	base := filepath.Base(t.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type decoderFunc func(r io.ReadSeeker) (*Track, error)

var decoders = map[string]decoderFunc{
	".wav":  decodeWAV,
	".mp3":  decodeMP3,
	".ogg":  decodeOGG,
	".flac": decodeFLAC,
}

// Formats lists the supported file extensions.
func Formats() []string {
	exts := make([]string, 0, len(decoders))
	for ext := range decoders {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Supported reports whether path has a decodable extension.
func Supported(path string) bool {
	_, ok := decoders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// File decodes the audio file at path, chosen by extension.
func File(path string) (_ *Track, err error) {
	ext := strings.ToLower(filepath.Ext(path))
	dec, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer closeWithError(f, &err)

	start := time.Now()
	track, err := dec(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	track.Path = path
	track.Format = strings.TrimPrefix(ext, ".")
	if track.SampleRate <= 0 {
		return nil, fmt.Errorf("failed to decode %s: invalid sample rate %d", path, track.SampleRate)
	}
	if ext == ".mp3" {
		readID3(path, track)
	}

	logger.Debugf("decoded %s: %d samples, %d Hz, %d ch in %s",
		filepath.Base(path), len(track.Samples), track.SampleRate, track.Channels, time.Since(start).Round(time.Millisecond))
	return track, nil
}

// mixToMono averages interleaved frames into one channel. Non-finite input
// becomes silence and the result is clamped to [-1, 1].
func mixToMono(dst []float32, interleaved []float32, channels int) []float32 {
	if channels <= 0 {
		channels = 1
	}
	frames := len(interleaved) / channels
	dst = slices.Grow(dst, frames)
	for i := range frames {
		var sum float64
		for ch := range channels {
			sum += float64(interleaved[i*channels+ch])
		}
		dst = append(dst, sanitize(sum/float64(channels)))
	}
	return dst
}

func sanitize(v float64) float32 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return float32(math.Max(-1, math.Min(v, 1)))
}

func closeWithError(c io.Closer, err *error) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}
