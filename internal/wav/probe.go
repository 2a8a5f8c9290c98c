package wav

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Info describes a WAV file as seen by an independent decoder.
type Info struct {
	Path          string
	SampleRate    uint32
	Channels      uint16
	BitsPerSample uint16
	AudioFormat   uint16
	DataSize      int64
	FileSize      int64
	Duration      time.Duration
	// PeakDBFS is the loudest sample relative to full scale; -Inf for silence.
	PeakDBFS float64
}

// decodeBlockSamples bounds how much of the payload is decoded at once
const decodeBlockSamples = 8192

// Probe opens path with go-audio/wav and reports its format and peak level.
// The payload is decoded in fixed-size blocks.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open wav file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return Info{}, fmt.Errorf("failed to stat wav file: %w", err)
	}

	d := wav.NewDecoder(f)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return Info{}, fmt.Errorf("failed to read wav info: %w", err)
	}
	if !d.IsValidFile() {
		return Info{}, ErrNotWave
	}

	info := Info{
		Path:          path,
		SampleRate:    d.SampleRate,
		Channels:      d.NumChans,
		BitsPerSample: d.BitDepth,
		AudioFormat:   d.WavAudioFormat,
		FileSize:      stat.Size(),
		PeakDBFS:      math.Inf(-1),
	}
	if info.AudioFormat != formatPCM {
		return info, fmt.Errorf("%w: format code %d", ErrNotPCM, info.AudioFormat)
	}

	bitDepth := int(info.BitsPerSample)
	buf := &audio.IntBuffer{Data: make([]int, decodeBlockSamples)}
	var samples int64
	peak := 0
	for {
		n, err := d.PCMBuffer(buf)
		if err != nil {
			return info, fmt.Errorf("failed to decode pcm: %w", err)
		}
		if n == 0 {
			break
		}
		samples += int64(n)
		if p := peakSample(buf.Data[:n], bitDepth); p > peak {
			peak = p
		}
	}

	info.DataSize = samples * int64(bitDepth/8)
	h := Header{
		SampleRate:    info.SampleRate,
		Channels:      info.Channels,
		BitsPerSample: info.BitsPerSample,
		DataSize:      uint32(info.DataSize),
	}
	info.Duration = h.Duration()
	info.PeakDBFS = dbfs(peak, bitDepth)

	return info, nil
}

// peakSample is the largest distance from silence in data. 8-bit WAV
// samples are unsigned and centred on 128.
func peakSample(data []int, bitDepth int) int {
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}

	peak := 0
	for _, s := range data {
		v := s - offset
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}

// dbfs converts a peak sample to dB relative to full scale
func dbfs(peak, bitDepth int) float64 {
	if peak == 0 || bitDepth <= 0 {
		return math.Inf(-1)
	}
	fullScale := float64(int(1) << (bitDepth - 1))
	return 20 * math.Log10(float64(peak)/fullScale)
}
