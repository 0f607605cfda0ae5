// SPDX-License-Identifier: MIT

// Package snapshot renders a single frame to a PNG image: the background
// colour, the stroked outline of every visible shape, and text annotations.
package snapshot

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"os"

	"spectra/internal/color"
	"spectra/internal/engine"
	"spectra/internal/log"
	"spectra/internal/pattern"

	"github.com/golang/freetype/raster"
	"golang.org/x/image/math/fixed"
)

var logger = log.For("snapshot")

// strokeWidth is the outline width in pixels.
const strokeWidth = 2

// Renderer draws frames at a fixed size. It is not safe for concurrent use.
type Renderer struct {
	width, height int
	rasterizer    *raster.Rasterizer
	annotator     *Annotator
}

// NewRenderer returns a Renderer producing width×height images.
func NewRenderer(width, height int) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid snapshot size %dx%d", width, height)
	}
	a, err := NewAnnotator()
	if err != nil {
		return nil, err
	}
	return &Renderer{
		width:      width,
		height:     height,
		rasterizer: raster.NewRasterizer(width, height),
		annotator:  a,
	}, nil
}

// Render draws f into a new image.
func (r *Renderer) Render(f engine.Frame) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: f.Background.Clamped()}, image.Point{}, draw.Src)

	painter := raster.NewRGBAPainter(img)
	drawn := 0
	for _, s := range f.Shapes {
		if !s.Visible() {
			continue
		}
		r.rasterizer.Clear()
		r.rasterizer.AddStroke(r.path(pattern.Outline(s)), fixed.I(strokeWidth), raster.RoundCapper, raster.RoundJoiner)
		painter.SetColor(color.ShapeColor(s.Amplitude))
		r.rasterizer.Rasterize(painter)
		drawn++
	}

	if err := r.annotator.Annotate(img, f, r.toPixel); err != nil {
		return nil, fmt.Errorf("annotating frame %d: %w", f.Sequence, err)
	}
	logger.Debugf("rendered frame %d: %d of %d shapes", f.Sequence, drawn, len(f.Shapes))
	return img, nil
}

// WritePNG renders f and encodes it to w.
func (r *Renderer) WritePNG(w io.Writer, f engine.Frame) error {
	img, err := r.Render(f)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}

// SaveFile renders f to a PNG file at path.
func (r *Renderer) SaveFile(path string, f engine.Frame) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cErr := out.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()
	return r.WritePNG(out, f)
}

// toPixel maps normalised device coordinates (y up) to image pixels.
func (r *Renderer) toPixel(p pattern.Point) (x, y float64) {
	return (p.X + 1) / 2 * float64(r.width), (1 - p.Y) / 2 * float64(r.height)
}

func (r *Renderer) path(pts []pattern.Point) raster.Path {
	var path raster.Path
	for i, p := range pts {
		x, y := r.toPixel(p)
		fp := fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)}
		if i == 0 {
			path.Start(fp)
		} else {
			path.Add1(fp)
		}
	}
	return path
}
