// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"spectra/internal/audio"
	"spectra/internal/config"
	"spectra/internal/decode"
	"spectra/internal/engine"
	"spectra/internal/log"
	"spectra/internal/snapshot"
	"spectra/internal/store"
	"spectra/internal/transport"
	"spectra/internal/transport/udp"
	"spectra/internal/tui"

	"github.com/dustin/go-humanize"
)

var logger = log.For("cmd")

// storeFlushFrames is how many analysed frames are buffered before a batch
// insert.
const storeFlushFrames = 1024

// LoadConfig loads the config file and applies command line overrides on top.
func LoadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if opts.FFTSize != 0 {
		cfg.Analysis.FFTSize = opts.FFTSize
	}
	if opts.Layout != "" {
		cfg.Pattern.Layout = opts.Layout
	}
	if opts.StorePath != "" {
		cfg.Store.Path = opts.StorePath
	}
	if opts.DeviceSet {
		cfg.Audio.InputDevice = opts.DeviceID
	}
	if opts.Record {
		cfg.Recording.Enabled = true
	}
	if opts.WebSocket {
		cfg.Transport.WebSocketEnabled = true
	}
	if opts.UDP {
		cfg.Transport.UDPEnabled = true
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigureLogging sets the global level from cfg.
func ConfigureLogging(cfg *config.Config) {
	level, ok := log.ParseLevel(cfg.LogLevel)
	if !ok {
		log.Warnf("unknown log level %q, using %s", cfg.LogLevel, level)
	}
	if cfg.Debug {
		level = log.LevelDebug
	}
	log.SetLevel(level)
}

// Execute runs the command selected in opts. Output meant for the user goes
// to w; diagnostics go through the logger.
func Execute(ctx context.Context, opts *Options, cfg *config.Config, w io.Writer) error {
	switch opts.Command {
	case CommandVisualize:
		return visualize(ctx, opts, cfg)
	case CommandAnalyze:
		return analyze(ctx, opts, cfg, w)
	case CommandSnapshot:
		return renderSnapshot(ctx, opts, cfg, w)
	case CommandLive:
		return live(ctx, opts, cfg)
	case CommandList:
		return listDevices(opts, w)
	case CommandSessions:
		return listSessions(ctx, cfg, w)
	default:
		return fmt.Errorf("unknown command %q", opts.Command)
	}
}

func loadTrack(cfg *config.Config, path string) (*engine.Pipeline, *decode.Track, error) {
	track, err := decode.File(path)
	if err != nil {
		return nil, nil, err
	}
	p, err := engine.NewPipeline(cfg)
	if err != nil {
		return nil, nil, err
	}
	return p, track, nil
}

// transports builds the publishers enabled in cfg. The caller closes the
// returned Multi.
func transports(cfg *config.Config) (transport.Multi, error) {
	var sinks transport.Multi

	if cfg.Transport.WebSocketEnabled {
		ws, err := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress, time.Second/time.Duration(cfg.Analysis.FrameRate))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, ws)
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			_ = sinks.Close()
			return nil, err
		}
		pub, err := udp.NewPublisher(cfg.Transport.UDPSendInterval, sender)
		if err != nil {
			_ = sender.Close()
			_ = sinks.Close()
			return nil, err
		}
		pub.Start()
		sinks = append(sinks, pub)
	}

	if log.Enabled(log.LevelDebug) {
		sinks = append(sinks, transport.NewLoggingTransport(cfg.Analysis.FrameRate))
	}
	return sinks, nil
}

func visualize(_ context.Context, opts *Options, cfg *config.Config) (err error) {
	p, track, err := loadTrack(cfg, opts.File)
	if err != nil {
		return err
	}

	// The alternate screen owns the terminal; log lines would tear it.
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		log.SetOutput(f)
	} else {
		log.SetOutput(io.Discard)
	}
	defer log.SetOutput(os.Stderr)

	sinks, err := transports(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := sinks.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	player := engine.NewPlayer(p, cfg.Analysis.FrameRate)
	player.Load(track)
	player.SetLoop(!opts.NoLoop)

	return tui.Run(player, tui.Options{
		FrameRate: cfg.Analysis.FrameRate,
		MaxDelta:  cfg.Analysis.MaxDelta,
		Sinks:     sinks,
	})
}

type summary struct {
	frames int
	kicks  int
	peak   [3]float64
	sum    [3]float64
	bands  [3]float64
}

func (s *summary) add(f engine.Frame) {
	s.frames++
	if f.Kick {
		s.kicks++
	}
	for i, v := range []float64{f.Shaped.Bass, f.Shaped.Mid, f.Shaped.Treble} {
		s.peak[i] = max(s.peak[i], v)
		s.sum[i] += v
	}
	for i, v := range []float64{f.Summary.Bass, f.Summary.Mid, f.Summary.Treble} {
		s.bands[i] += v
	}
}

func analyze(ctx context.Context, opts *Options, cfg *config.Config, w io.Writer) (err error) {
	p, track, err := loadTrack(cfg, opts.File)
	if err != nil {
		return err
	}

	var (
		st        *store.Store
		sessionID int64
		pending   []store.FrameRecord
	)
	if opts.Store {
		st = store.New(cfg.Store.Path)
		defer func() {
			if cErr := st.Close(); cErr != nil && err == nil {
				err = cErr
			}
		}()
		sessionID, err = st.CreateSession(ctx, track.Path, track.SampleRate, cfg.Analysis.FFTSize, cfg.Analysis)
		if err != nil {
			return err
		}
	}

	var sum summary
	start := time.Now()
	_, err = engine.Analyze(ctx, p, track, cfg.Analysis.FrameRate, func(f engine.Frame) error {
		sum.add(f)
		if st == nil {
			return nil
		}
		pending = append(pending, store.RecordFrame(f))
		if len(pending) < storeFlushFrames {
			return nil
		}
		err := st.AppendFrames(ctx, sessionID, pending)
		pending = pending[:0]
		return err
	})
	if err != nil {
		return err
	}
	if st != nil {
		if err := st.AppendFrames(ctx, sessionID, pending); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "track\t%s\n", track.Name())
	fmt.Fprintf(tw, "format\t%s, %s, %d ch, %s\n", track.Format, humanize.SIWithDigits(float64(track.SampleRate), 1, "Hz"), track.Channels, track.Duration().Round(time.Millisecond))
	fmt.Fprintf(tw, "frames\t%s at %d fps (%d samples per frame, FFT %d)\n",
		humanize.Comma(int64(sum.frames)), cfg.Analysis.FrameRate, cfg.SamplesPerFrame(track.SampleRate), cfg.Analysis.FFTSize)
	fmt.Fprintf(tw, "kicks\t%d\n", sum.kicks)
	if sum.frames > 0 {
		n := float64(sum.frames)
		for i, name := range []string{"bass", "mid", "treble"} {
			fmt.Fprintf(tw, "%s\tmean %.3f  peak %.3f  band mean %.3f\n", name, sum.sum[i]/n, sum.peak[i], sum.bands[i]/n)
		}
	}
	fmt.Fprintf(tw, "analysed in\t%s (%.0fx realtime)\n", elapsed.Round(time.Millisecond), track.Duration().Seconds()/max(elapsed.Seconds(), 1e-9))
	if st != nil {
		fmt.Fprintf(tw, "stored\tsession %d in %s\n", sessionID, st.Path())
	}
	return tw.Flush()
}

func renderSnapshot(ctx context.Context, opts *Options, cfg *config.Config, w io.Writer) error {
	p, track, err := loadTrack(cfg, opts.File)
	if err != nil {
		return err
	}

	frame, err := engine.FrameAt(ctx, p, track, cfg.Analysis.FrameRate, opts.At)
	if err != nil {
		return err
	}

	r, err := snapshot.NewRenderer(cfg.Snapshot.Width, cfg.Snapshot.Height)
	if err != nil {
		return err
	}

	out := opts.Output
	if out == "" {
		base := strings.TrimSuffix(filepath.Base(track.Path), filepath.Ext(track.Path))
		out = fmt.Sprintf("%s-%s.png", base, strings.ReplaceAll(frame.Position.Round(time.Millisecond).String(), ".", "_"))
	}
	if err := r.SaveFile(out, frame); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %s (%s at %s)\n", out, track.Name(), frame.Position.Round(time.Millisecond))
	return nil
}

func live(ctx context.Context, opts *Options, cfg *config.Config) (err error) {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if opts.Pick {
		sel, err := tui.PickDevice()
		if err != nil {
			return err
		}
		cfg.Audio.InputDevice = sel.DeviceID
		cfg.Audio.SampleRate = sel.SampleRate
		logger.Infof("using %s at %.0f Hz", sel.Name, sel.SampleRate)
	}

	p, err := engine.NewPipeline(cfg)
	if err != nil {
		return err
	}

	// Two blocks of history so Latest never waits on a callback.
	capture, err := audio.NewCapture(cfg, 2*cfg.Analysis.FFTSize)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := capture.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	sinks, err := transports(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := sinks.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()
	if len(sinks) == 0 {
		logger.Warnf("no transports enabled, frames are analysed but not published")
	}

	if err := capture.Start(); err != nil {
		return err
	}
	if cfg.Recording.Enabled {
		if err := os.MkdirAll(cfg.Recording.OutputDir, 0o755); err != nil {
			return fmt.Errorf("creating recording directory: %w", err)
		}
		path := audio.RecordingFilename(cfg.Recording.OutputDir, time.Now())
		if err := capture.StartRecording(path); err != nil {
			return err
		}
		defer func() {
			if sErr := capture.StopRecording(); sErr != nil {
				logger.Errorf("stopping recording: %v", sErr)
				return
			}
			fmt.Printf("\nRecording saved to: %s\n", path)
		}()
	}

	runner := engine.NewRunner(engine.NewLiveSource(p, capture), cfg.Analysis.FrameRate, cfg.Analysis.MaxDelta, sinks...)
	err = runner.Run(ctx)

	buffers, gated := capture.Stats()
	logger.Infof("captured %s buffers, %s below the gate", humanize.Comma(int64(buffers)), humanize.Comma(int64(gated)))
	if stopErr := capture.Stop(); stopErr != nil && err == nil {
		err = stopErr
	}
	return err
}

func listDevices(opts *Options, w io.Writer) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if !opts.Interactive {
		return audio.ListDevices(w)
	}

	sel, err := tui.PickDevice()
	if errors.Is(err, tui.ErrNoSelection) {
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "spectra live --device %d  # %s, %.0f Hz\n", sel.DeviceID, sel.Name, sel.SampleRate)
	return nil
}

func listSessions(ctx context.Context, cfg *config.Config, w io.Writer) (err error) {
	st := store.New(cfg.Store.Path)
	defer func() {
		if cErr := st.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	sessions, err := st.Sessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintf(w, "no sessions in %s\n", st.Path())
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSOURCE\tRATE\tFFT\tFRAMES")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
			s.ID, humanize.Time(s.StartedAt), s.Source,
			humanize.SIWithDigits(float64(s.SampleRate), 1, "Hz"), s.FFTSize, humanize.Comma(int64(s.Frames)))
	}
	return tw.Flush()
}
