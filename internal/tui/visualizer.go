// SPDX-License-Identifier: MIT

// Package tui holds the Bubble Tea programs: the terminal visualiser that
// plays a decoded track through the analysis pipeline, and the device picker.
package tui

import (
	"fmt"
	"strings"
	"time"

	"spectra/internal/analysis"
	"spectra/internal/color"
	"spectra/internal/engine"
	"spectra/internal/log"
	"spectra/internal/transport"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var logger = log.For("tui")

const (
	seekStep      = 5 * time.Second
	barHeight     = 8
	statusTimeout = 2 * time.Second
)

// Eighth blocks, empty to full.
var blocks = []rune(" ▁▂▃▄▅▆▇█")

type tickMsg time.Time

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Options configures the visualiser.
type Options struct {
	FrameRate int                   // Ticks per second, 60 when zero.
	MaxDelta  float64               // Frame timer clamp in seconds.
	Sinks     []transport.Transport // Every produced frame is also sent here.
}

// Visualizer is the Bubble Tea model. Key presses arrive as messages on the
// program's event loop and are applied between frames, so the pipeline is
// only ever touched from Update.
type Visualizer struct {
	player   *engine.Player
	timer    *engine.Timer
	interval time.Duration
	sinks    []transport.Transport
	keys     keyMap

	frame    engine.Frame
	hasFrame bool

	meters [3]progress.Model
	track  progress.Model

	width, height int
	status        string
	statusAt      time.Time
	quitting      bool
}

// NewVisualizer returns a model driving pl. The player must already have a
// track loaded.
func NewVisualizer(pl *engine.Player, opts Options) Visualizer {
	if opts.FrameRate <= 0 {
		opts.FrameRate = 60
	}

	v := Visualizer{
		player:   pl,
		timer:    engine.NewTimer(opts.MaxDelta),
		interval: time.Second / time.Duration(opts.FrameRate),
		sinks:    opts.Sinks,
		keys:     visualizerKeys,
		track:    progress.New(progress.WithScaledGradient("#FF8C00", "#FF5F1F"), progress.WithoutPercentage()),
	}
	gradients := [3][2]string{
		{"#FF0000", "#FF8000"}, // bass
		{"#FFFF00", "#00FF00"}, // mid
		{"#00FFFF", "#8000FF"}, // treble
	}
	for i, g := range gradients {
		v.meters[i] = progress.New(progress.WithScaledGradient(g[0], g[1]), progress.WithoutPercentage())
	}
	v.resize(80, 24)
	return v
}

// Init starts the frame clock.
func (v Visualizer) Init() tea.Cmd {
	title := "spectra"
	if t := v.player.Track(); t != nil {
		title = "spectra - " + t.Name()
	}
	return tea.Batch(tick(v.interval), tea.SetWindowTitle(title))
}

// Update handles frame ticks, window resizes and key presses.
func (v Visualizer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		now := time.Time(msg)
		dt := v.timer.Tick(now)
		if frame, ok := v.player.Next(dt); ok {
			v.frame = frame
			v.hasFrame = true
			v.publish(frame)
		}
		if v.status != "" && now.Sub(v.statusAt) > statusTimeout {
			v.status = ""
		}
		return v, tick(v.interval)

	case tea.WindowSizeMsg:
		v.resize(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKey(msg)
	}
	return v, nil
}

func (v Visualizer) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pipeline := v.player.Pipeline()
	switch {
	case key.Matches(msg, v.keys.Quit):
		v.quitting = true
		return v, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
	case key.Matches(msg, v.keys.Pause):
		if v.player.TogglePause() {
			v.setStatus("paused")
		} else {
			v.setStatus("playing")
		}
	case key.Matches(msg, v.keys.Layout):
		v.setStatus("layout: " + pipeline.NextLayout().String())
	case key.Matches(msg, v.keys.Color):
		v.setStatus("colour: " + pipeline.NextColorMode().String())
	case key.Matches(msg, v.keys.Restart):
		v.player.Restart()
		v.setStatus("restarted")
	case key.Matches(msg, v.keys.Back):
		v.player.SeekBy(-seekStep)
	case key.Matches(msg, v.keys.Forward):
		v.player.SeekBy(seekStep)
	}
	return v, nil
}

func (v *Visualizer) setStatus(s string) {
	v.status = s
	v.statusAt = time.Now()
	logger.Debugf("%s", s)
}

func (v *Visualizer) publish(frame engine.Frame) {
	for _, s := range v.sinks {
		if err := s.Send(frame); err != nil {
			logger.Warnf("transport send failed: %v", err)
		}
	}
}

func (v *Visualizer) resize(width, height int) {
	v.width, v.height = width, height
	w := max(20, min(width-12, 60))
	for i := range v.meters {
		v.meters[i].Width = w
	}
	v.track.Width = w
}

// Frame returns the most recent frame, if any has been produced.
func (v Visualizer) Frame() (engine.Frame, bool) { return v.frame, v.hasFrame }

// View renders the band bars, level meters, progress and status.
func (v Visualizer) View() string {
	if v.quitting {
		return ""
	}

	var b strings.Builder
	name := "no track"
	if t := v.player.Track(); t != nil {
		name = t.Name()
	}
	b.WriteString("\n  " + titleStyle.Render("spectra") + "  " + infoStyle.Render(name) + "\n\n")

	if v.hasFrame {
		b.WriteString(renderBars(v.frame.Bands, barHeight))
		b.WriteString("\n")
		levels := v.frame.Shaped
		for i, label := range []string{"bass  ", "mid   ", "treble"} {
			value := []float64{levels.Bass, levels.Mid, levels.Treble}[i]
			fmt.Fprintf(&b, "  %s %s %s\n", dimStyle.Render(label), v.meters[i].ViewAs(clamp01(value)), dimStyle.Render(fmt.Sprintf("%.2f", value)))
		}
	} else {
		b.WriteString("  " + dimStyle.Render("waiting for audio...") + "\n")
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s %s %s\n",
		dimStyle.Render(formatDuration(v.player.Position())),
		v.track.ViewAs(v.player.Progress()),
		dimStyle.Render(formatDuration(v.player.Duration())))

	b.WriteString("\n  " + v.statusLine() + "\n")
	b.WriteString("\n  " + helpStyle.Render(v.keys.helpLine()) + "\n")
	return b.String()
}

func (v Visualizer) statusLine() string {
	pipeline := v.player.Pipeline()
	icon := "▶"
	if v.player.Paused() {
		icon = "❚❚"
	}

	parts := []string{
		icon,
		"layout " + highlightStyle.Render(v.frame.Layout),
		"colour " + highlightStyle.Render(pipeline.ColorMode().String()),
		"response " + highlightStyle.Render(pipeline.ResponseMode().String()),
		fmt.Sprintf("%d fps", v.timer.FPS()),
	}
	if v.hasFrame && v.frame.Hex != "" {
		swatch := lipgloss.NewStyle().Background(lipgloss.Color(v.frame.Hex)).Render("    ")
		parts = append(parts, swatch+" "+dimStyle.Render(v.frame.Hex))
	}
	if v.frame.Kick {
		parts = append(parts, kickStyle.Render("KICK"))
	}
	if v.status != "" {
		parts = append(parts, infoStyle.Render(v.status))
	}
	return strings.Join(parts, "  ")
}

// renderBars draws one two-column bar per band, height rows tall, coloured
// by the band's centre frequency.
func renderBars(bands []analysis.FrequencyBand, height int) string {
	if len(bands) == 0 || height <= 0 {
		return ""
	}

	styles := make([]lipgloss.Style, len(bands))
	for i, band := range bands {
		styles[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(color.FrequencyColor(band.CenterFrequency).Clamped().Hex()))
	}

	var b strings.Builder
	for row := height - 1; row >= 0; row-- {
		b.WriteString("  ")
		for i, band := range bands {
			fill := clamp01(band.SmoothedAmplitude)*float64(height) - float64(row)
			var r rune
			switch {
			case fill >= 1:
				r = blocks[len(blocks)-1]
			case fill <= 0:
				r = blocks[0]
			default:
				r = blocks[int(fill*float64(len(blocks)-1))]
			}
			b.WriteString(styles[i].Render(string([]rune{r, r})))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func clamp01(v float64) float64 {
	return max(0, min(v, 1))
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// Run plays pl in the terminal until the user quits.
func Run(pl *engine.Player, opts Options) error {
	p := tea.NewProgram(NewVisualizer(pl, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
