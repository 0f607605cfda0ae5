// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"

	"spectra/internal/fft"
	"spectra/internal/response"
	"spectra/pkg/utils"
)

const (
	testFFTSize    = 4096
	testSampleRate = 44100
)

func transform(t testing.TB, samples []float32) fft.Spectrum {
	t.Helper()
	tr, err := fft.NewTransformer(testFFTSize)
	if err != nil {
		t.Fatalf("NewTransformer() error = %v", err)
	}
	return tr.Transform(samples)
}

func TestBandBinOrdering(t *testing.T) {
	tests := []struct {
		fftSize, sampleRate int
	}{
		{4096, 44100},
		{256, 44100},
		{64, 44100},
		{4096, 8000},
		{65536, 192000},
	}
	for _, tt := range tests {
		bands := buildBands(tt.fftSize, tt.sampleRate)
		for _, b := range bands {
			if b.BinStart < 0 || b.BinStart > b.BinEnd || b.BinEnd > tt.fftSize/2 {
				t.Errorf("fft %d @ %d Hz: band %s has bins %d..%d", tt.fftSize, tt.sampleRate, b.Name, b.BinStart, b.BinEnd)
			}
		}
	}
}

func TestBandCountStable(t *testing.T) {
	tests := []struct {
		fftSize, sampleRate int
		want                int
	}{
		{4096, 44100, 23},
		{256, 44100, 23},
		// Brilliance and the top two detail bands lie above Nyquist.
		{4096, 8000, 20},
	}
	for _, tt := range tests {
		first := buildBands(tt.fftSize, tt.sampleRate)
		if len(first) != tt.want {
			t.Errorf("fft %d @ %d Hz: %d bands, want %d", tt.fftSize, tt.sampleRate, len(first), tt.want)
		}
		for range 3 {
			again := buildBands(tt.fftSize, tt.sampleRate)
			if len(again) != len(first) {
				t.Fatalf("band count changed between builds: %d then %d", len(first), len(again))
			}
			for i := range again {
				if again[i] != first[i] {
					t.Fatalf("band %d differs between builds: %+v vs %+v", i, first[i], again[i])
				}
			}
		}
	}
}

func TestBandNames(t *testing.T) {
	bands := buildBands(testFFTSize, testSampleRate)
	want := []string{"SubBass", "Bass", "LowMid", "Mid", "HighMid", "Presence", "Brilliance", "Detail01"}
	for i, name := range want {
		if bands[i].Name != name {
			t.Errorf("band %d = %s, want %s", i, bands[i].Name, name)
		}
	}
	if last := bands[len(bands)-1]; last.Name != "Detail16" || last.BinStart != 557 || last.BinEnd != 743 {
		t.Errorf("last band = %+v", last)
	}
	if b := bands[1]; b.CenterFrequency != 155 || b.BinStart != 5 || b.BinEnd != 23 {
		t.Errorf("Bass band = %+v, want centre 155 bins 5..23", b)
	}
}

func TestAnalyzeSilence(t *testing.T) {
	agg := NewAggregator()
	s := transform(t, utils.GenerateSilence(testFFTSize))
	if s.MaxMagnitude != 0 {
		t.Fatalf("MaxMagnitude = %g, want 0", s.MaxMagnitude)
	}

	bands := agg.AnalyzeFrequencies(s, testSampleRate)
	if len(bands) != 23 {
		t.Fatalf("got %d bands, want 23", len(bands))
	}
	for _, b := range bands {
		if b.Amplitude != 0 || b.SmoothedAmplitude != 0 {
			t.Errorf("band %s = %g/%g, want 0", b.Name, b.Amplitude, b.SmoothedAmplitude)
		}
	}
	if agg.GetBassLevel() != 0 || agg.GetMidLevel() != 0 || agg.GetTrebleLevel() != 0 {
		t.Error("summaries of silence should be 0")
	}
}

func TestAnalyzeSinePeak(t *testing.T) {
	const peakBin = 41 // round(440·4096/44100)

	agg := NewAggregator()
	bands := agg.AnalyzeFrequencies(transform(t, utils.GenerateSineWave(testFFTSize, testSampleRate, 440, 0.8)), testSampleRate)

	loudest := bands[0]
	for _, b := range bands[1:] {
		if b.Amplitude > loudest.Amplitude {
			loudest = b
		}
	}
	if loudest.BinStart > peakBin || loudest.BinEnd < peakBin {
		t.Errorf("loudest band %s covers bins %d..%d, want it to contain %d", loudest.Name, loudest.BinStart, loudest.BinEnd, peakBin)
	}
}

func TestNormalizationBound(t *testing.T) {
	agg := NewAggregator()
	signals := [][]float32{
		utils.GenerateComplexWave(testFFTSize, testSampleRate),
		utils.GenerateSineWave(testFFTSize, testSampleRate, 60, 1),
		utils.GenerateSineWave(testFFTSize, testSampleRate, 12000, 0.01),
		utils.GenerateSineWave(testFFTSize/3, testSampleRate, 900, 1),
	}
	for frame := range 40 {
		bands := agg.AnalyzeFrequencies(transform(t, signals[frame%len(signals)]), testSampleRate)
		for _, b := range bands {
			if b.Amplitude < 0 || b.Amplitude > 1 || b.SmoothedAmplitude < 0 || b.SmoothedAmplitude > 1 {
				t.Fatalf("frame %d band %s out of [0,1]: %g/%g", frame, b.Name, b.Amplitude, b.SmoothedAmplitude)
			}
		}
	}
}

func TestSmoothingConvergence(t *testing.T) {
	agg := NewAggregator()
	s := transform(t, utils.GenerateComplexWave(testFFTSize, testSampleRate))

	var prev []FrequencyBand
	for frame := range 20 {
		bands := agg.AnalyzeFrequencies(s, testSampleRate)
		for i, b := range bands {
			if prev != nil && math.Abs(b.SmoothedAmplitude-b.Amplitude) > math.Abs(prev[i].SmoothedAmplitude-b.Amplitude) {
				t.Fatalf("frame %d band %s moved away from its target", frame, b.Name)
			}
		}
		prev = bands
	}

	for _, b := range prev {
		target := b.Amplitude
		// initial smoothed value is 0
		if math.Abs(b.SmoothedAmplitude-target) >= 0.02*target && target > 0 {
			t.Errorf("band %s: smoothed %g after 20 frames, target %g", b.Name, b.SmoothedAmplitude, target)
		}
	}
}

func TestAnalyzeReturnsCopy(t *testing.T) {
	agg := NewAggregator()
	s := transform(t, utils.GenerateComplexWave(testFFTSize, testSampleRate))

	bands := agg.AnalyzeFrequencies(s, testSampleRate)
	bands[0].SmoothedAmplitude = 42
	bands[0].BinEnd = -1

	again := agg.Bands()
	if again[0].SmoothedAmplitude == 42 || again[0].BinEnd == -1 {
		t.Error("caller mutation leaked into aggregator state")
	}
}

func TestRebuildOnConfigChange(t *testing.T) {
	agg := NewAggregator()
	agg.AnalyzeFrequencies(transform(t, utils.GenerateComplexWave(testFFTSize, testSampleRate)), testSampleRate)
	if agg.GetMidLevel() == 0 {
		t.Fatal("mid level should be non-zero after a 440 Hz frame")
	}

	tr, err := fft.NewTransformer(1024)
	if err != nil {
		t.Fatal(err)
	}
	bands := agg.AnalyzeFrequencies(tr.Transform(utils.GenerateSilence(1024)), 48000)
	if got := bands[1].BinEnd; got != 250*1024/48000 {
		t.Errorf("Bass BinEnd = %d after rebuild, want %d", got, 250*1024/48000)
	}
	for _, b := range bands {
		if b.SmoothedAmplitude != 0 {
			t.Errorf("band %s kept smoothing state across a rebuild", b.Name)
		}
	}
}

func TestReset(t *testing.T) {
	agg := NewAggregator()
	s := transform(t, utils.GenerateComplexWave(testFFTSize, testSampleRate))
	before := agg.AnalyzeFrequencies(s, testSampleRate)
	agg.Reset()

	after := agg.Bands()
	if len(after) != len(before) {
		t.Fatalf("Reset changed band count: %d -> %d", len(before), len(after))
	}
	for i, b := range after {
		if b.Amplitude != 0 || b.SmoothedAmplitude != 0 {
			t.Errorf("band %s not reset", b.Name)
		}
		if b.BinStart != before[i].BinStart || b.BinEnd != before[i].BinEnd {
			t.Errorf("band %s bins changed on Reset", b.Name)
		}
	}
}

func TestSummaryLevels(t *testing.T) {
	agg := NewAggregator(WithSmoothing(0))
	if agg.GetBassLevel() != 0 {
		t.Error("bass level before any frame should be 0")
	}

	agg.AnalyzeFrequencies(transform(t, utils.GenerateSineWave(testFFTSize, testSampleRate, 120, 1)), testSampleRate)
	bass, mid, treble := agg.GetBassLevel(), agg.GetMidLevel(), agg.GetTrebleLevel()
	if bass <= mid || bass <= treble {
		t.Errorf("120 Hz sine: bass %g, mid %g, treble %g", bass, mid, treble)
	}

	agg.AnalyzeFrequencies(transform(t, utils.GenerateSineWave(testFFTSize, testSampleRate, 9000, 1)), testSampleRate)
	bass, mid, treble = agg.GetBassLevel(), agg.GetMidLevel(), agg.GetTrebleLevel()
	if treble <= bass || treble <= mid {
		t.Errorf("9 kHz sine: bass %g, mid %g, treble %g", bass, mid, treble)
	}
}

func TestRangeMaxLevels(t *testing.T) {
	tests := []struct {
		name  string
		bands []FrequencyBand
		want  response.Levels
	}{
		{"empty", nil, response.Levels{}},
		{
			"sub-bass counts as bass",
			[]FrequencyBand{
				{CenterFrequency: 40, SmoothedAmplitude: 0.6},
				{CenterFrequency: 155, SmoothedAmplitude: 0.1},
			},
			response.Levels{Bass: 0.6},
		},
		{
			"peak not mean",
			[]FrequencyBand{
				{CenterFrequency: 375, SmoothedAmplitude: 0.2},
				{CenterFrequency: 1250, SmoothedAmplitude: 0.9},
				{CenterFrequency: 3000, SmoothedAmplitude: 0},
			},
			response.Levels{Mid: 0.9},
		},
		{
			"boundaries go up",
			[]FrequencyBand{
				{CenterFrequency: 250, SmoothedAmplitude: 0.3},
				{CenterFrequency: 4000, SmoothedAmplitude: 0.4},
			},
			response.Levels{Mid: 0.3, Treble: 0.4},
		},
		{
			"raw amplitude ignored",
			[]FrequencyBand{{CenterFrequency: 13000, Amplitude: 1, SmoothedAmplitude: 0.25}},
			response.Levels{Treble: 0.25},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RangeMaxLevels(tt.bands); got != tt.want {
				t.Errorf("RangeMaxLevels() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRangeMaxLevelsSubBassTone(t *testing.T) {
	agg := NewAggregator(WithSmoothing(0))
	bands := agg.AnalyzeFrequencies(transform(t, utils.GenerateSineWave(testFFTSize, testSampleRate, 40, 0.8)), testSampleRate)

	peaks := RangeMaxLevels(bands)
	if peaks.Bass < 0.3 {
		t.Errorf("40 Hz sine: bass peak %g, want > 0.3", peaks.Bass)
	}
	if mean := agg.GetBassLevel(); mean > peaks.Bass/10 {
		t.Errorf("40 Hz sine: bass mean %g should sit far below the peak %g", mean, peaks.Bass)
	}
}

func TestMeanMagnitude(t *testing.T) {
	mags := []float64{1, 2, 3, 4}
	tests := []struct {
		name       string
		start, end int
		want       float64
	}{
		{"full", 0, 3, 2.5},
		{"single", 2, 2, 3},
		{"past end skipped", 2, 10, 3.5},
		{"no valid bins", 5, 8, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := meanMagnitude(mags, tt.start, tt.end); got != tt.want {
				t.Errorf("meanMagnitude(%d, %d) = %g, want %g", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func BenchmarkAnalyzeFrequencies(b *testing.B) {
	agg := NewAggregator()
	s := transform(b, utils.GenerateComplexWave(testFFTSize, testSampleRate))

	b.ReportAllocs()
	for b.Loop() {
		agg.AnalyzeFrequencies(s, testSampleRate)
	}
}
