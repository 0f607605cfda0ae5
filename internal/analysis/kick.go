// SPDX-License-Identifier: MIT
package analysis

// Kick detector defaults.
const (
	DefaultKickThreshold = 0.35
	DefaultKickMinRatio  = 1.4
)

// KickDetector flags kick drum onsets from the raw (unsmoothed) bass level:
// a kick is a frame whose level exceeds the threshold and has risen by at
// least minRatio over the previous frame.
type KickDetector struct {
	threshold float64
	minRatio  float64
	last      float64
	count     uint64
}

// NewKickDetector returns a detector. Non-positive arguments fall back to the
// defaults.
func NewKickDetector(threshold, minRatio float64) *KickDetector {
	if threshold <= 0 {
		threshold = DefaultKickThreshold
	}
	if minRatio <= 0 {
		minRatio = DefaultKickMinRatio
	}
	logger.Debugf("kick detector (threshold %.2f, min ratio %.2f)", threshold, minRatio)
	return &KickDetector{threshold: threshold, minRatio: minRatio}
}

// Detect consumes one frame's bass level and reports whether it is a kick.
func (k *KickDetector) Detect(level float64) bool {
	kick := level > k.threshold && (k.last == 0 || level/k.last > k.minRatio)
	k.last = level
	if kick {
		k.count++
	}
	return kick
}

// Count returns the number of kicks detected since the last Reset.
func (k *KickDetector) Count() uint64 { return k.count }

// Reset forgets the previous level and the kick count.
func (k *KickDetector) Reset() {
	k.last = 0
	k.count = 0
}

// RawBassLevel is the mean unsmoothed amplitude of the bass summary bands, the
// input the kick detector expects.
func RawBassLevel(bands []FrequencyBand) float64 {
	var sum float64
	var n int
	for i := range bands {
		if c := bands[i].CenterFrequency; c >= bassLowHz && c <= bassHighHz {
			sum += bands[i].Amplitude
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
