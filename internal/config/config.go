// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"time"
)

// Core configuration constants that define the boundaries and defaults for
// the analysis pipeline and its outer surfaces.
const (
	// Analysis defaults.
	DefaultFFTSize         = 4096    // Power of two, ~93ms at 44.1kHz
	DefaultFFTBackend      = "gonum" // Transform plan implementation
	DefaultWindow          = "hann"  // Analysis window
	DefaultSmoothing       = 0.8     // One-pole band smoothing factor
	DefaultFrameRate       = 60      // Visual frames per second
	DefaultMaxDelta        = 0.1     // Frame timer clamp (seconds)
	DefaultBassResponse    = 0.2     // Heavy, slow
	DefaultMidResponse     = 0.1     // Moderate
	DefaultTrebleResponse  = 0.05    // Snappy
	DefaultResponseMode    = "critical"
	DefaultStiffness       = 120.0
	DefaultDamping         = 0.02
	DefaultHarmonicaFreq   = 6.0
	DefaultHarmonicaDamp   = 0.6
	DefaultLayout          = "grid"
	DefaultColorMode       = "rainbow"
	DefaultKickThreshold   = 0.35
	DefaultKickMinRatio    = 1.4
	DefaultSnapshotWidth   = 1280
	DefaultSnapshotHeight  = 720
	DefaultStorePath       = "spectra.db"
	DefaultWebSocketAddr   = ":8080"
	DefaultUDPTarget       = "127.0.0.1:9090"
	DefaultUDPSendInterval = 16 * time.Millisecond // ~60Hz

	// Capture defaults.
	DefaultDeviceID        = MinDeviceID // System default device
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultChannels        = 1           // Mono capture
	DefaultGateThreshold   = 0.001       // ~-60dBFS

	// Hardware and processing limits.
	MinDeviceID   = -1     // -1 represents system default device
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
	MinFFTSize    = 256    // Below this the bass bands collapse
	MaxFFTSize    = 65536  // Above this a frame exceeds a second of audio
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

var (
	validBackends  = []string{"gonum", "godsp"}
	validWindows   = []string{"hann", "hanning", "hamming", "blackman", "blackmannuttall", "bartletthann", "lanczos", "nuttall"}
	validModes     = []string{"critical", "spring", "harmonica"}
	validLayouts   = []string{"grid", "circular", "log-horizontal"}
	validColorMode = []string{"static", "frequency", "rainbow", "pulse"}
)
