// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"spectra/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (forces log level debug).
	LogLevel  string          `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").
	LogFile   string          `yaml:"log_file"`  // Log destination while the terminal UI owns the screen.
	Analysis  AnalysisConfig  `yaml:"analysis"`  // Transform and band settings.
	Response  ResponseConfig  `yaml:"response"`  // Level shaping settings.
	Pattern   PatternConfig   `yaml:"pattern"`   // Shape layout.
	Color     ColorConfig     `yaml:"color"`     // Background colour mode.
	Kick      KickConfig      `yaml:"kick"`      // Kick detector.
	Audio     AudioConfig     `yaml:"audio"`     // Live capture settings.
	Recording RecordingConfig `yaml:"recording"` // Live capture recording.
	Transport TransportConfig `yaml:"transport"` // Frame publishing.
	Store     StoreConfig     `yaml:"store"`     // SQLite analysis log.
	Snapshot  SnapshotConfig  `yaml:"snapshot"`  // PNG rendering.
}

// AnalysisConfig holds the spectral analysis settings.
type AnalysisConfig struct {
	FFTSize    int     `yaml:"fft_size"`    // Transform block size, power of two.
	FFTBackend string  `yaml:"fft_backend"` // "gonum" or "godsp".
	Window     string  `yaml:"window"`      // Analysis window name.
	Smoothing  float64 `yaml:"smoothing"`   // Band smoothing factor in [0, 1).
	FrameRate  int     `yaml:"frame_rate"`  // Visual frames per second; sets samples per frame.
	MaxDelta   float64 `yaml:"max_delta"`   // Frame timer clamp in seconds.
}

// ResponseConfig holds per-channel response times and the shaping mode.
type ResponseConfig struct {
	Mode          string  `yaml:"mode"`           // "critical", "spring" or "harmonica".
	Bass          float64 `yaml:"bass"`           // Bass response time (s).
	Mid           float64 `yaml:"mid"`            // Mid response time (s).
	Treble        float64 `yaml:"treble"`         // Treble response time (s).
	Stiffness     float64 `yaml:"stiffness"`      // Spring mode stiffness.
	Damping       float64 `yaml:"damping"`        // Spring mode velocity retention per second.
	HarmonicaFreq float64 `yaml:"harmonica_freq"` // Harmonica angular frequency.
	HarmonicaDamp float64 `yaml:"harmonica_damp"` // Harmonica damping ratio.
}

// PatternConfig selects the shape layout.
type PatternConfig struct {
	Layout string `yaml:"layout"` // "grid", "circular" or "log-horizontal".
}

// ColorConfig selects the background colour mode.
type ColorConfig struct {
	Mode string `yaml:"mode"` // "static", "frequency", "rainbow" or "pulse".
}

// KickConfig tunes the kick detector.
type KickConfig struct {
	Threshold float64 `yaml:"threshold"` // Minimum raw bass level.
	MinRatio  float64 `yaml:"min_ratio"` // Minimum rise over the previous frame.
}

// AudioConfig holds settings related to live audio input.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per PortAudio callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency from the device.
	InputChannels   int     `yaml:"input_channels"`    // Channels to capture, mixed to mono.
	GateThreshold   float64 `yaml:"gate_threshold"`    // Peak below which a buffer counts as silence.
}

// RecordingConfig holds settings related to capture recording.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Record live input to WAV.
	OutputDir string `yaml:"output_dir"` // Directory for recordings.
	BitDepth  int    `yaml:"bit_depth"`  // 16 or 24.
}

// TransportConfig holds settings related to publishing frames.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve frames on /ws.
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send level packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // host:port.
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between packets.
}

// StoreConfig holds the analysis log location.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// SnapshotConfig holds PNG rendering dimensions.
type SnapshotConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Analysis: AnalysisConfig{
			FFTSize:    DefaultFFTSize,
			FFTBackend: DefaultFFTBackend,
			Window:     DefaultWindow,
			Smoothing:  DefaultSmoothing,
			FrameRate:  DefaultFrameRate,
			MaxDelta:   DefaultMaxDelta,
		},
		Response: ResponseConfig{
			Mode:          DefaultResponseMode,
			Bass:          DefaultBassResponse,
			Mid:           DefaultMidResponse,
			Treble:        DefaultTrebleResponse,
			Stiffness:     DefaultStiffness,
			Damping:       DefaultDamping,
			HarmonicaFreq: DefaultHarmonicaFreq,
			HarmonicaDamp: DefaultHarmonicaDamp,
		},
		Pattern: PatternConfig{Layout: DefaultLayout},
		Color:   ColorConfig{Mode: DefaultColorMode},
		Kick: KickConfig{
			Threshold: DefaultKickThreshold,
			MinRatio:  DefaultKickMinRatio,
		},
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			InputChannels:   DefaultChannels,
			GateThreshold:   DefaultGateThreshold,
		},
		Recording: RecordingConfig{
			OutputDir: "./recordings",
			BitDepth:  16,
		},
		Transport: TransportConfig{
			WebSocketAddress: DefaultWebSocketAddr,
			UDPTargetAddress: DefaultUDPTarget,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
		Store: StoreConfig{Path: DefaultStorePath},
		Snapshot: SnapshotConfig{
			Width:  DefaultSnapshotWidth,
			Height: DefaultSnapshotHeight,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml", "spectra.yaml"). If no file is found,
// it uses built-in defaults. After loading defaults or from file, it applies environment
// variable overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range []string{"config.yaml", "spectra.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment overrides apply AFTER the file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field the pipeline relies on. All failures wrap ErrInvalid.
func (c *Config) Validate() error {
	invalid := func(format string, v ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, v...))
	}

	a := c.Analysis
	if !bitint.IsPowerOfTwo(a.FFTSize) {
		return invalid("analysis.fft_size must be a power of 2, got %d (try %d or %d)",
			a.FFTSize, bitint.PrevPowerOfTwo(a.FFTSize), bitint.NextPowerOfTwo(a.FFTSize))
	}
	if a.FFTSize < MinFFTSize || a.FFTSize > MaxFFTSize {
		return invalid("analysis.fft_size %d outside [%d, %d]", a.FFTSize, MinFFTSize, MaxFFTSize)
	}
	if !slices.Contains(validBackends, strings.ToLower(a.FFTBackend)) {
		return invalid("analysis.fft_backend %q not one of %v", a.FFTBackend, validBackends)
	}
	if !slices.Contains(validWindows, strings.ToLower(a.Window)) {
		return invalid("analysis.window %q not one of %v", a.Window, validWindows)
	}
	if a.Smoothing < 0 || a.Smoothing >= 1 {
		return invalid("analysis.smoothing must be in [0, 1), got %g", a.Smoothing)
	}
	if a.FrameRate <= 0 {
		return invalid("analysis.frame_rate must be positive, got %d", a.FrameRate)
	}
	if a.MaxDelta <= 0 {
		return invalid("analysis.max_delta must be positive, got %g", a.MaxDelta)
	}

	r := c.Response
	if !slices.Contains(validModes, strings.ToLower(r.Mode)) {
		return invalid("response.mode %q not one of %v", r.Mode, validModes)
	}
	if r.Bass <= 0 || r.Mid <= 0 || r.Treble <= 0 {
		return invalid("response times must be positive (bass %g, mid %g, treble %g)", r.Bass, r.Mid, r.Treble)
	}
	if r.Damping < 0 || r.Damping > 1 {
		return invalid("response.damping must be in [0, 1], got %g", r.Damping)
	}

	if !slices.Contains(validLayouts, strings.ToLower(c.Pattern.Layout)) {
		return invalid("pattern.layout %q not one of %v", c.Pattern.Layout, validLayouts)
	}
	if !slices.Contains(validColorMode, strings.ToLower(c.Color.Mode)) {
		return invalid("color.mode %q not one of %v", c.Color.Mode, validColorMode)
	}

	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return invalid("audio.sample_rate %g outside [%d, %d]", c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.InputDevice < MinDeviceID {
		return invalid("audio.input_device %d below %d", c.Audio.InputDevice, MinDeviceID)
	}
	if c.Audio.InputChannels < 1 {
		return invalid("audio.input_channels must be at least 1, got %d", c.Audio.InputChannels)
	}
	if c.Recording.BitDepth != 16 && c.Recording.BitDepth != 24 {
		return invalid("recording.bit_depth must be 16 or 24, got %d", c.Recording.BitDepth)
	}

	t := c.Transport
	if t.UDPEnabled {
		if !strings.Contains(t.UDPTargetAddress, ":") {
			return invalid("transport.udp_target_address %q appears invalid (missing port?)", t.UDPTargetAddress)
		}
		if t.UDPSendInterval <= 0 {
			return invalid("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	if t.WebSocketEnabled && t.WebSocketAddress == "" {
		return invalid("transport.websocket_address must be set when websocket is enabled")
	}

	if c.Snapshot.Width <= 0 || c.Snapshot.Height <= 0 {
		return invalid("snapshot dimensions must be positive, got %dx%d", c.Snapshot.Width, c.Snapshot.Height)
	}
	return nil
}

// SamplesPerFrame is the cursor advance per visual frame for a given sample rate.
func (c *Config) SamplesPerFrame(sampleRate int) int {
	return sampleRate / c.Analysis.FrameRate
}

// applyEnvOverrides applies ENV_* variables on top of the loaded values.
// Values that fail to parse are ignored.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
		}
	}
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
	}

	// ENV_{ANALYSIS}
	if val, ok := os.LookupEnv("ENV_FFT_SIZE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Analysis.FFTSize = n
		}
	}
	if val, ok := os.LookupEnv("ENV_LAYOUT"); ok {
		c.Pattern.Layout = val
	}

	// ENV_UDP_{...}
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
		}
	}

	// ENV_WS_{...}
	if val, ok := os.LookupEnv("ENV_WS_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.WebSocketEnabled = bVal
		}
	}
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
	}

	if val, ok := os.LookupEnv("ENV_STORE_PATH"); ok {
		c.Store.Path = val
	}
}
