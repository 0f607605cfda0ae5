// SPDX-License-Identifier: MIT
package snapshot

import (
	"bytes"
	"image/png"
	"path/filepath"
	"testing"

	"spectra/internal/engine"
	"spectra/internal/pattern"

	"github.com/lucasb-eyer/go-colorful"
)

func testFrame() engine.Frame {
	bg := colorful.Color{R: 0.1, G: 0.1, B: 0.3}
	return engine.Frame{
		Sequence:   42,
		SampleRate: 44100,
		Layout:     "grid",
		Background: bg,
		Hex:        bg.Hex(),
		Shapes: []pattern.Shape{
			{Band: "Bass", Frequency: 150, Category: pattern.Circle, Position: pattern.Point{}, Radius: 0.2, Amplitude: 1, Active: true},
			{Band: "Treble", Frequency: 8000, Category: pattern.Star, Position: pattern.Point{X: 0.8, Y: 0.8}, Radius: 0.1, Amplitude: 0.005, Active: true},
		},
	}
}

func TestNewRendererInvalidSize(t *testing.T) {
	for _, size := range [][2]int{{0, 10}, {10, 0}, {-1, -1}} {
		if _, err := NewRenderer(size[0], size[1]); err == nil {
			t.Errorf("NewRenderer(%d, %d) succeeded", size[0], size[1])
		}
	}
}

func TestRender(t *testing.T) {
	r, err := NewRenderer(200, 100)
	if err != nil {
		t.Fatal(err)
	}
	img, err := r.Render(testFrame())
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Fatalf("bounds = %v", b)
	}

	// A corner far from text and shapes keeps the background.
	r16, g16, b16, _ := testFrame().Background.Clamped().RGBA()
	if c := img.RGBAAt(199, 99); c.R != uint8(r16>>8) || c.G != uint8(g16>>8) || c.B != uint8(b16>>8) {
		t.Errorf("background pixel = %v", c)
	}

	// The circle outline crosses the horizontal centre line at x = 100 ± 20.
	lit := false
	for x := 115; x <= 125; x++ {
		if px := img.RGBAAt(x, 50); px.R > 100 {
			lit = true
		}
	}
	if !lit {
		t.Error("circle outline not drawn at its right edge")
	}

	// The inaudible star is skipped.
	if px := img.RGBAAt(180, 10); px.R > 100 {
		t.Errorf("invisible shape drawn: %v", px)
	}
}

func TestWritePNGAndSaveFile(t *testing.T) {
	r, err := NewRenderer(64, 64)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := r.WritePNG(&buf, testFrame()); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if img.Bounds().Dx() != 64 {
		t.Errorf("width = %d", img.Bounds().Dx())
	}

	if err := r.SaveFile(filepath.Join(t.TempDir(), "frame.png"), testFrame()); err != nil {
		t.Errorf("SaveFile: %v", err)
	}
	if err := r.SaveFile(filepath.Join(t.TempDir(), "missing", "frame.png"), testFrame()); err == nil {
		t.Error("SaveFile into a missing directory succeeded")
	}
}

func TestHumanHz(t *testing.T) {
	tests := []struct {
		hz   float64
		want string
	}{
		{440, "440.00 Hz"},
		{4000, "4.00 kHz"},
		{44100, "44.10 kHz"},
	}
	for _, tt := range tests {
		if got := HumanHz(tt.hz); got != tt.want {
			t.Errorf("HumanHz(%v) = %q, want %q", tt.hz, got, tt.want)
		}
	}
}
