// SPDX-License-Identifier: MIT
package decode

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, path string, sampleRate, bitDepth, channels int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
}

func TestFileWAVStereoMixdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	// Frames: (16384, 16384), (-32768, 0), (0, 0), (32767, -32767)
	writeWAV(t, path, 8000, 16, 2, []int{16384, 16384, -32768, 0, 0, 0, 32767, -32767})

	track, err := File(path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}

	if track.SampleRate != 8000 || track.Channels != 2 || track.BitDepth != 16 {
		t.Errorf("got %d Hz, %d ch, %d bit; want 8000 Hz, 2 ch, 16 bit", track.SampleRate, track.Channels, track.BitDepth)
	}
	if track.Format != "wav" {
		t.Errorf("Format = %q, want wav", track.Format)
	}

	want := []float32{0.5, -0.5, 0, 0}
	if len(track.Samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(track.Samples), len(want))
	}
	for i, w := range want {
		if math.Abs(float64(track.Samples[i]-w)) > 1e-4 {
			t.Errorf("sample %d = %v, want %v", i, track.Samples[i], w)
		}
	}
}

func TestFileWAVSine(t *testing.T) {
	const sampleRate = 44100
	data := make([]int, sampleRate/2)
	for i := range data {
		data[i] = int(16000 * math.Sin(2*math.Pi*440*float64(i)/sampleRate))
	}
	path := filepath.Join(t.TempDir(), "Sine Test.wav")
	writeWAV(t, path, sampleRate, 16, 1, data)

	track, err := File(path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if got := track.Duration(); got != 500*time.Millisecond {
		t.Errorf("Duration = %v, want 500ms", got)
	}
	if got := track.Name(); got != "Sine Test" {
		t.Errorf("Name = %q, want file name fallback", got)
	}
	for i, s := range track.Samples {
		if s < -1 || s > 1 {
			t.Fatalf("sample %d = %v out of range", i, s)
		}
	}
}

func TestFileErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := File(filepath.Join(dir, "song.aiff"))
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("err = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := File(filepath.Join(dir, "missing.wav"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("err = %v, want not-exist", err)
		}
	})

	t.Run("garbage wav", func(t *testing.T) {
		path := filepath.Join(dir, "garbage.wav")
		if err := os.WriteFile(path, []byte("definitely not riff"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := File(path); err == nil {
			t.Error("expected error for invalid WAV")
		}
	})
}

func TestMixToMono(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	tests := []struct {
		name     string
		in       []float32
		channels int
		want     []float32
	}{
		{"mono passthrough", []float32{0.1, -0.2}, 1, []float32{0.1, -0.2}},
		{"stereo average", []float32{1, 0, -1, -0.5}, 2, []float32{0.5, -0.75}},
		{"partial trailing frame dropped", []float32{1, 1, 0.5}, 2, []float32{1}},
		{"clamped", []float32{2, 2, -3}, 1, []float32{1, 1, -1}},
		{"non-finite silenced", []float32{nan, inf, 0.25}, 1, []float32{0, 0, 0.25}},
		{"zero channels treated as mono", []float32{0.3}, 0, []float32{0.3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mixToMono(nil, tt.in, tt.channels)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if math.Abs(float64(got[i]-tt.want[i])) > 1e-6 {
					t.Errorf("[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTrackName(t *testing.T) {
	tests := []struct {
		track Track
		want  string
	}{
		{Track{Path: "/music/a.mp3"}, "a"},
		{Track{Path: "/music/a.mp3", Title: "Song"}, "Song"},
		{Track{Path: "/music/a.mp3", Title: "Song", Artist: "Band"}, "Band - Song"},
	}
	for _, tt := range tests {
		if got := tt.track.Name(); got != tt.want {
			t.Errorf("Name() = %q, want %q", got, tt.want)
		}
	}
}

func TestSupported(t *testing.T) {
	for _, p := range []string{"a.wav", "b.MP3", "c.ogg", "d.flac"} {
		if !Supported(p) {
			t.Errorf("Supported(%q) = false", p)
		}
	}
	if Supported("e.txt") {
		t.Error("Supported(e.txt) = true")
	}
	if got := Formats(); len(got) != 4 || got[0] != ".flac" {
		t.Errorf("Formats() = %v", got)
	}
}
