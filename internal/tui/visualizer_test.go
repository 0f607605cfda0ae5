// SPDX-License-Identifier: MIT
package tui

import (
	"strings"
	"testing"
	"time"

	"spectra/internal/analysis"
	"spectra/internal/config"
	"spectra/internal/decode"
	"spectra/internal/engine"
	"spectra/internal/transport"
	"spectra/pkg/utils"

	tea "github.com/charmbracelet/bubbletea"
)

func newTestVisualizer(t *testing.T, sinks ...transport.Transport) Visualizer {
	t.Helper()
	cfg := config.Default()
	cfg.Analysis.FFTSize = 1024
	p, err := engine.NewPipeline(cfg)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	pl := engine.NewPlayer(p, 60)
	pl.Load(&decode.Track{
		Path:       "/music/Twenty Seconds.wav",
		Samples:    utils.GenerateComplexWave(20*8000, 8000),
		SampleRate: 8000,
		Channels:   1,
	})
	return NewVisualizer(pl, Options{Sinks: sinks})
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// step sends msg and returns the updated model.
func step(t *testing.T, v Visualizer, msg tea.Msg) (Visualizer, tea.Cmd) {
	t.Helper()
	m, cmd := v.Update(msg)
	next, ok := m.(Visualizer)
	if !ok {
		t.Fatalf("Update returned %T", m)
	}
	return next, cmd
}

func TestVisualizerTick(t *testing.T) {
	sink := &utils.MockTransport{}
	v := newTestVisualizer(t, sink)

	if _, ok := v.Frame(); ok {
		t.Fatal("frame before first tick")
	}

	now := time.Now()
	v, cmd := step(t, v, tickMsg(now))
	if cmd == nil {
		t.Error("tick did not schedule the next tick")
	}
	v, _ = step(t, v, tickMsg(now.Add(time.Second/60)))

	frame, ok := v.Frame()
	if !ok {
		t.Fatal("no frame after ticks")
	}
	if len(frame.Bands) == 0 || len(frame.Shapes) != len(frame.Bands) {
		t.Errorf("frame has %d bands and %d shapes", len(frame.Bands), len(frame.Shapes))
	}
	if got := sink.Count(); got != 2 {
		t.Errorf("sink received %d frames, want 2", got)
	}
}

func TestVisualizerPause(t *testing.T) {
	sink := &utils.MockTransport{}
	v := newTestVisualizer(t, sink)
	now := time.Now()

	v, _ = step(t, v, tickMsg(now))
	v, _ = step(t, v, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if !v.player.Paused() {
		t.Fatal("space did not pause")
	}
	v, _ = step(t, v, tickMsg(now.Add(time.Second/60)))
	if got := sink.Count(); got != 1 {
		t.Errorf("paused player produced frames: %d sent", got)
	}
	if !strings.Contains(v.View(), "❚❚") {
		t.Error("view does not show paused state")
	}

	v, _ = step(t, v, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if v.player.Paused() {
		t.Error("second space did not resume")
	}
}

func TestVisualizerLayoutAndColour(t *testing.T) {
	v := newTestVisualizer(t)
	now := time.Now()

	v, _ = step(t, v, tickMsg(now))
	if f, _ := v.Frame(); f.Layout != "grid" {
		t.Fatalf("initial layout = %q", f.Layout)
	}

	v, _ = step(t, v, runeKey("l"))
	v, _ = step(t, v, tickMsg(now.Add(time.Second/60)))
	if f, _ := v.Frame(); f.Layout != "circular" {
		t.Errorf("layout after l = %q, want circular", f.Layout)
	}

	before := v.player.Pipeline().ColorMode()
	v, _ = step(t, v, runeKey("c"))
	if after := v.player.Pipeline().ColorMode(); after != before.Next() {
		t.Errorf("colour mode after c = %v, want %v", after, before.Next())
	}
	if !strings.Contains(v.status, "colour") {
		t.Errorf("status = %q", v.status)
	}
}

func TestVisualizerSeek(t *testing.T) {
	v := newTestVisualizer(t)

	tests := []struct {
		key  tea.KeyMsg
		want time.Duration
	}{
		{tea.KeyMsg{Type: tea.KeyRight}, 5 * time.Second},
		{tea.KeyMsg{Type: tea.KeyRight}, 10 * time.Second},
		{tea.KeyMsg{Type: tea.KeyLeft}, 5 * time.Second},
		{runeKey("r"), 0},
		{tea.KeyMsg{Type: tea.KeyLeft}, 0},
	}
	for _, tt := range tests {
		v, _ = step(t, v, tt.key)
		if got := v.player.Position(); got != tt.want {
			t.Errorf("after %s: position = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestVisualizerQuit(t *testing.T) {
	v := newTestVisualizer(t)
	v, cmd := step(t, v, runeKey("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if !v.quitting {
		t.Error("model not quitting")
	}
	if v.View() != "" {
		t.Error("view not cleared on quit")
	}
}

func TestVisualizerView(t *testing.T) {
	v := newTestVisualizer(t)
	if !strings.Contains(v.View(), "waiting for audio") {
		t.Error("view before first frame missing placeholder")
	}

	v, _ = step(t, v, tea.WindowSizeMsg{Width: 120, Height: 40})
	v, _ = step(t, v, tickMsg(time.Now()))
	view := v.View()
	for _, want := range []string{"Twenty Seconds", "bass", "treble", "layout", "0:20", "space pause"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if v.track.Width != 60 {
		t.Errorf("progress width = %d, want 60", v.track.Width)
	}
}

func TestRenderBars(t *testing.T) {
	bands := []analysis.FrequencyBand{
		{CenterFrequency: 60, SmoothedAmplitude: 1},
		{CenterFrequency: 1000, SmoothedAmplitude: 0},
		{CenterFrequency: 8000, SmoothedAmplitude: 0.5},
	}
	out := renderBars(bands, 4)
	rows := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if !strings.Contains(rows[0], "██") {
		t.Errorf("top row missing full bar: %q", rows[0])
	}
	if got := strings.Count(rows[3], "█"); got != 4 {
		t.Errorf("bottom row has %d full blocks, want 4", got)
	}
	if renderBars(nil, 4) != "" {
		t.Error("no bands should render nothing")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{61 * time.Second, "1:01"},
		{10*time.Minute + 400*time.Millisecond, "10:00"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
