// SPDX-License-Identifier: MIT
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

const wavFormatIEEEFloat = 3

func decodeWAV(r io.ReadSeeker) (*Track, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	channels := int(dec.NumChans)
	depth := int(dec.BitDepth)
	isFloat := dec.WavAudioFormat == wavFormatIEEEFloat && depth == 32

	interleaved := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		switch {
		case isFloat:
			interleaved[i] = math.Float32frombits(uint32(v))
		case depth == 8:
			// 8-bit WAV is unsigned.
			interleaved[i] = float32(v-128) / 128
		default:
			interleaved[i] = float32(float64(v) / float64(int64(1)<<(depth-1)))
		}
	}

	return &Track{
		Samples:    mixToMono(nil, interleaved, channels),
		SampleRate: int(dec.SampleRate),
		Channels:   channels,
		BitDepth:   depth,
	}, nil
}

// go-mp3 always produces 16-bit little-endian stereo.
func decodeMP3(r io.ReadSeeker) (*Track, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	const channels = 2
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("reading MP3 frames: %w", err)
	}

	interleaved := make([]float32, len(raw)/2)
	for i := range interleaved {
		interleaved[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768
	}
	return &Track{
		Samples:    mixToMono(nil, interleaved, channels),
		SampleRate: dec.SampleRate(),
		Channels:   channels,
		BitDepth:   16,
	}, nil
}

func decodeOGG(r io.ReadSeeker) (*Track, error) {
	reader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, err
	}

	channels := reader.Channels()
	samples := make([]float32, 0, max(0, reader.Length())*int64(channels))
	buf := make([]float32, 4096*channels)
	for {
		n, err := reader.Read(buf)
		samples = append(samples, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading OGG packets: %w", err)
		}
	}

	return &Track{
		Samples:    mixToMono(nil, samples, channels),
		SampleRate: reader.SampleRate(),
		Channels:   channels,
	}, nil
}

func decodeFLAC(r io.ReadSeeker) (*Track, error) {
	stream, err := flac.NewSeek(r)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	scale := 1 / float64(int64(1)<<(info.BitsPerSample-1))

	mono := make([]float32, 0, info.NSamples)
	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading FLAC frame: %w", err)
		}
		for i := range int(frame.Subframes[0].NSamples) {
			var sum float64
			for ch := range channels {
				sum += float64(frame.Subframes[ch].Samples[i])
			}
			mono = append(mono, sanitize(sum*scale/float64(channels)))
		}
	}

	return &Track{
		Samples:    mono,
		SampleRate: int(info.SampleRate),
		Channels:   channels,
		BitDepth:   int(info.BitsPerSample),
	}, nil
}

// readID3 fills in tag fields from an ID3v2 header, if there is one.
func readID3(path string, t *Track) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		logger.Debugf("no ID3 tag in %s: %v", path, err)
		return
	}
	defer tag.Close()

	t.Title = strings.TrimSpace(tag.Title())
	t.Artist = strings.TrimSpace(tag.Artist())
	t.Album = strings.TrimSpace(tag.Album())
}
