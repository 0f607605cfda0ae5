// SPDX-License-Identifier: MIT
package snapshot

import (
	"fmt"
	"image"
	"time"

	"spectra/internal/engine"
	"spectra/internal/pattern"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi       float64 = 72
	infoSize  float64 = 14
	labelSize float64 = 10
	spacing   float64 = 1.2

	// Shapes quieter than this get no frequency label.
	labelAmplitude = 0.3
)

// Annotator writes frame info and band labels with the Go font.
type Annotator struct {
	context *freetype.Context
}

// NewAnnotator parses the embedded font.
func NewAnnotator() (*Annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	context := freetype.NewContext()
	context.SetDPI(dpi)
	context.SetFont(parsedFont)
	context.SetHinting(font.HintingFull)
	return &Annotator{context: context}, nil
}

// Annotate draws the info block and labels onto img. toPixel maps shape
// positions to image coordinates.
func (a *Annotator) Annotate(img *image.RGBA, f engine.Frame, toPixel func(pattern.Point) (float64, float64)) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)
	a.context.SetSrc(textColor(f))

	if err := a.drawLabels(f, toPixel); err != nil {
		return fmt.Errorf("drawing labels: %w", err)
	}
	if err := a.drawInfo(f); err != nil {
		return fmt.Errorf("drawing info: %w", err)
	}
	return nil
}

func (a *Annotator) drawLabels(f engine.Frame, toPixel func(pattern.Point) (float64, float64)) error {
	a.context.SetFontSize(labelSize)
	for _, s := range f.Shapes {
		if !s.Visible() || s.Amplitude < labelAmplitude {
			continue
		}
		x, y := toPixel(s.Position)
		pt := freetype.Pt(int(x)+4, int(y)-4)
		if _, err := a.context.DrawString(HumanHz(s.Frequency), pt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Annotator) drawInfo(f engine.Frame) error {
	a.context.SetFontSize(infoSize)
	lines := []string{
		fmt.Sprintf("frame %d  %s", f.Sequence, f.Position.Round(10*time.Millisecond)),
		fmt.Sprintf("layout %s  background %s", f.Layout, f.Hex),
		fmt.Sprintf("bass %.2f  mid %.2f  treble %.2f", f.Shaped.Bass, f.Shaped.Mid, f.Shaped.Treble),
	}
	if f.SampleRate > 0 {
		lines = append(lines, "sample rate "+HumanHz(float64(f.SampleRate)))
	}

	pt := freetype.Pt(8, int(infoSize)+6)
	for _, s := range lines {
		if _, err := a.context.DrawString(s, pt); err != nil {
			return err
		}
		pt.Y += a.context.PointToFixed(infoSize * spacing)
	}
	return nil
}

// HumanHz formats a frequency with an SI prefix, e.g. "4.00 kHz".
func HumanHz(hz float64) string {
	v, suffix := humanize.ComputeSI(hz)
	return fmt.Sprintf("%0.2f %sHz", v, suffix)
}

// textColor picks black or white for contrast with the background.
func textColor(f engine.Frame) *image.Uniform {
	_, _, l := f.Background.Clamped().Hsl()
	if l > 0.6 {
		return image.Black
	}
	return image.White
}
