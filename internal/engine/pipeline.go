// SPDX-License-Identifier: MIT

// Package engine runs the per-frame analysis pipeline (transform, band
// aggregation, response shaping, pattern mapping and colour) and drives it
// from decoded tracks or live input.
package engine

import (
	"fmt"
	"time"

	"spectra/internal/analysis"
	"spectra/internal/color"
	"spectra/internal/config"
	"spectra/internal/fft"
	"spectra/internal/log"
	"spectra/internal/pattern"
	"spectra/internal/response"

	"github.com/lucasb-eyer/go-colorful"
)

var logger = log.For("engine")

// Frame is the visual parameter set produced for one tick.
type Frame struct {
	Sequence   uint64                   `json:"seq"`
	Time       float64                  `json:"time"`     // pipeline time in seconds
	Position   time.Duration            `json:"position"` // playback position, 0 for live input
	SampleRate int                      `json:"sampleRate"`
	Bands      []analysis.FrequencyBand `json:"bands"`
	Levels     response.Levels          `json:"levels"` // per-range peaks fed to the shaper
	Shaped     response.Levels          `json:"shaped"`
	Summary    response.Levels          `json:"summary"` // mean smoothed amplitude per summary range
	Shapes     []pattern.Shape          `json:"shapes"`
	Layout     string                   `json:"layout"`
	Background colorful.Color           `json:"-"`
	Hex        string                   `json:"background"`
	Kick       bool                     `json:"kick"`
}

// String summarises the frame for logs.
func (f Frame) String() string {
	kick := ""
	if f.Kick {
		kick = " kick"
	}
	return fmt.Sprintf("frame %d t=%.2fs bass=%.3f mid=%.3f treble=%.3f bg=%s%s",
		f.Sequence, f.Time, f.Shaped.Bass, f.Shaped.Mid, f.Shaped.Treble, f.Hex, kick)
}

// Pipeline owns one instance of every per-frame component. It is not safe
// for concurrent use; independent streams need independent pipelines.
type Pipeline struct {
	transformer *fft.Transformer
	aggregator  *analysis.Aggregator
	shaper      *response.Shaper
	mapper      *pattern.Mapper
	colors      *color.Manager
	kick        *analysis.KickDetector

	spectrum fft.Spectrum
	sequence uint64
	time     float64
}

// NewPipeline builds a Pipeline from validated configuration.
func NewPipeline(cfg *config.Config) (*Pipeline, error) {
	backend, err := fft.ParseBackend(cfg.Analysis.FFTBackend)
	if err != nil {
		return nil, err
	}
	window, err := fft.ParseWindowFunc(cfg.Analysis.Window)
	if err != nil {
		return nil, err
	}
	mode, err := response.ParseMode(cfg.Response.Mode)
	if err != nil {
		return nil, err
	}
	layout, err := pattern.ParseLayout(cfg.Pattern.Layout)
	if err != nil {
		return nil, err
	}
	colorMode, err := color.ParseMode(cfg.Color.Mode)
	if err != nil {
		return nil, err
	}

	transformer, err := fft.NewTransformer(cfg.Analysis.FFTSize,
		fft.WithBackend(backend),
		fft.WithWindow(window),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transformer: %w", err)
	}

	p := &Pipeline{
		transformer: transformer,
		aggregator:  analysis.NewAggregator(analysis.WithSmoothing(cfg.Analysis.Smoothing)),
		shaper: response.NewShaper(
			response.WithMode(mode),
			response.WithResponseTimes(cfg.Response.Bass, cfg.Response.Mid, cfg.Response.Treble),
			response.WithSpring(cfg.Response.Stiffness, cfg.Response.Damping),
			response.WithHarmonica(cfg.Response.HarmonicaFreq, cfg.Response.HarmonicaDamp),
		),
		mapper: pattern.NewMapper(layout),
		colors: color.NewManager(colorMode),
		kick:   analysis.NewKickDetector(cfg.Kick.Threshold, cfg.Kick.MinRatio),
	}
	logger.Infof("pipeline ready (fft %d/%s/%s, response %s, layout %s, colour %s)",
		cfg.Analysis.FFTSize, backend, window, mode, layout, colorMode)
	return p, nil
}

// Process runs one frame over block, which is padded or truncated to the
// transform size. deltaTime should already be clamped by a Timer.
func (p *Pipeline) Process(block []float32, sampleRate int, deltaTime float64) Frame {
	p.transformer.TransformInto(&p.spectrum, block)
	bands := p.aggregator.AnalyzeFrequencies(p.spectrum, sampleRate)

	levels := analysis.RangeMaxLevels(bands)
	summary := response.Levels{
		Bass:   p.aggregator.GetBassLevel(),
		Mid:    p.aggregator.GetMidLevel(),
		Treble: p.aggregator.GetTrebleLevel(),
	}
	shaped := p.shaper.Shape(levels, deltaTime)
	p.mapper.Update(bands, deltaTime)

	p.colors.Update(deltaTime)
	bg := p.colors.Background(shaped)

	p.sequence++
	p.time += deltaTime

	return Frame{
		Sequence:   p.sequence,
		Time:       p.time,
		SampleRate: sampleRate,
		Bands:      bands,
		Levels:     levels,
		Shaped:     shaped,
		Summary:    summary,
		Shapes:     p.mapper.Shapes(),
		Layout:     p.mapper.Layout().String(),
		Background: bg,
		Hex:        bg.Clamped().Hex(),
		Kick:       p.kick.Detect(analysis.RawBassLevel(bands)),
	}
}

// Reset clears all cross-frame state: band smoothing, shaper channels, shapes,
// colour time and the kick detector. Call it on seek, restart or a new source.
func (p *Pipeline) Reset() {
	p.aggregator.Reset()
	p.shaper.Reset()
	p.mapper.Reset()
	p.colors.Reset()
	p.kick.Reset()
	logger.Debugf("pipeline reset at frame %d", p.sequence)
}

// FFTSize returns the transform block length.
func (p *Pipeline) FFTSize() int { return p.transformer.Size() }

// NextLayout cycles the pattern layout.
func (p *Pipeline) NextLayout() pattern.Layout { return p.mapper.NextLayout() }

// SetLayout selects the pattern layout.
func (p *Pipeline) SetLayout(l pattern.Layout) { p.mapper.SetLayout(l) }

// NextColorMode cycles the background colour mode.
func (p *Pipeline) NextColorMode() color.Mode { return p.colors.NextMode() }

// ColorMode returns the background colour mode.
func (p *Pipeline) ColorMode() color.Mode { return p.colors.Mode() }

// ResponseMode returns the shaper filter.
func (p *Pipeline) ResponseMode() response.Mode { return p.shaper.Mode() }
