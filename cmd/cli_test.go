// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spectra/internal/config"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, o *Options)
	}{
		{"visualize", []string{"song.mp3", "--no-loop", "--layout", "circular"}, func(t *testing.T, o *Options) {
			if o.Command != CommandVisualize || o.File != "song.mp3" || !o.NoLoop || o.Layout != "circular" {
				t.Errorf("options = %+v", o)
			}
		}},
		{"analyze", []string{"analyze", "a.wav", "--store", "--db", "x.db", "--fft-size", "2048"}, func(t *testing.T, o *Options) {
			if o.Command != CommandAnalyze || o.File != "a.wav" || !o.Store || o.StorePath != "x.db" || o.FFTSize != 2048 {
				t.Errorf("options = %+v", o)
			}
		}},
		{"snapshot", []string{"snapshot", "a.flac", "--at", "1m30s", "-o", "out.png"}, func(t *testing.T, o *Options) {
			if o.Command != CommandSnapshot || o.At != 90*time.Second || o.Output != "out.png" {
				t.Errorf("options = %+v", o)
			}
		}},
		{"live with device", []string{"live", "-d", "3", "--record", "--ws", "-v"}, func(t *testing.T, o *Options) {
			if o.Command != CommandLive || !o.DeviceSet || o.DeviceID != 3 || !o.Record || !o.WebSocket || !o.Verbose {
				t.Errorf("options = %+v", o)
			}
		}},
		{"live default device", []string{"live"}, func(t *testing.T, o *Options) {
			if o.DeviceSet {
				t.Error("DeviceSet without --device")
			}
		}},
		{"list", []string{"list", "-i"}, func(t *testing.T, o *Options) {
			if o.Command != CommandList || !o.Interactive {
				t.Errorf("options = %+v", o)
			}
		}},
		{"sessions", []string{"sessions", "--config", "c.yaml"}, func(t *testing.T, o *Options) {
			if o.Command != CommandSessions || o.ConfigPath != "c.yaml" {
				t.Errorf("options = %+v", o)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := parse(tt.args)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if o == nil {
				t.Fatal("no options")
			}
			tt.check(t, o)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, args := range [][]string{
		{"analyze"},
		{"snapshot", "a.wav", "--at", "soon"},
		{"live", "extra"},
		{"a.wav", "b.wav"},
	} {
		if _, err := parse(args); err == nil {
			t.Errorf("parse(%q) succeeded", args)
		}
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfig(&Options{
		FFTSize:   2048,
		Layout:    "circular",
		StorePath: "runs.db",
		DeviceSet: true,
		DeviceID:  4,
		UDP:       true,
		Verbose:   true,
	})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Analysis.FFTSize != 2048 || cfg.Pattern.Layout != "circular" || cfg.Store.Path != "runs.db" {
		t.Errorf("analysis overrides not applied: %+v", cfg)
	}
	if cfg.Audio.InputDevice != 4 || !cfg.Transport.UDPEnabled || cfg.LogLevel != "debug" {
		t.Errorf("live overrides not applied: %+v", cfg)
	}

	if _, err := LoadConfig(&Options{FFTSize: 1000}); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func writeTone(t *testing.T, path string, seconds int) {
	t.Helper()
	const sampleRate = 8000
	data := make([]int, seconds*sampleRate)
	for i := range data {
		data[i] = int(12000 * math.Sin(2*math.Pi*110*float64(i)/sampleRate))
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	if err := enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func testCLIConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Analysis.FFTSize = 1024
	cfg.Analysis.FrameRate = 50 // 160 samples per frame at 8 kHz
	cfg.Store.Path = filepath.Join(dir, "spectra.db")
	cfg.Snapshot.Width, cfg.Snapshot.Height = 320, 180
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestExecuteAnalyzeAndSessions(t *testing.T) {
	dir := t.TempDir()
	track := filepath.Join(dir, "Low Hum.wav")
	writeTone(t, track, 2)
	cfg := testCLIConfig(t, dir)
	ctx := context.Background()

	var out bytes.Buffer
	if err := Execute(ctx, &Options{Command: CommandAnalyze, File: track, Store: true}, cfg, &out); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for _, want := range []string{"Low Hum", "8 kHz", "bass", "stored", "session 1"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("summary missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := Execute(ctx, &Options{Command: CommandSessions}, cfg, &out); err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if !strings.Contains(out.String(), "Low Hum.wav") || !strings.Contains(out.String(), "FRAMES") {
		t.Errorf("sessions output:\n%s", out.String())
	}
}

func TestExecuteSnapshot(t *testing.T) {
	dir := t.TempDir()
	track := filepath.Join(dir, "hum.wav")
	writeTone(t, track, 1)
	cfg := testCLIConfig(t, dir)
	png1 := filepath.Join(dir, "frame.png")

	var out bytes.Buffer
	err := Execute(context.Background(), &Options{Command: CommandSnapshot, File: track, At: 500 * time.Millisecond, Output: png1}, cfg, &out)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !strings.Contains(out.String(), "500ms") {
		t.Errorf("output = %q", out.String())
	}

	f, err := os.Open(png1)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 180 {
		t.Errorf("image is %dx%d", b.Dx(), b.Dy())
	}
}

func TestExecuteErrors(t *testing.T) {
	cfg := config.Default()
	if err := Execute(context.Background(), &Options{Command: "dance"}, cfg, &bytes.Buffer{}); err == nil {
		t.Error("unknown command succeeded")
	}
	err := Execute(context.Background(), &Options{Command: CommandAnalyze, File: "missing.wav"}, cfg, &bytes.Buffer{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want not-exist", err)
	}
}
