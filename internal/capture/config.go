package capture

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/petems/micwav/internal/audio"
	"github.com/petems/micwav/internal/wav"
)

const (
	DefaultSampleRate     = 44100
	DefaultChannels       = 1
	DefaultBitsPerSample  = 16
	DefaultSource         = audio.SourceVoiceRecognition
	DefaultOutputFileName = "audio.wav"

	// TempFileName is the raw PCM file accumulated while recording
	TempFileName = "temp.pcm"

	// The device buffer holds this many reads
	bufferMultiplier = 3
)

// Options are the recognised Init options. Zero values take the defaults.
type Options struct {
	SampleRate     int
	Channels       int
	BitsPerSample  int
	Source         audio.Source
	DeviceID       string
	OutputFileName string // resolved under the data directory, which it may not leave
}

// DefaultOptions returns Options with every default filled in
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.SampleRate == 0 {
		o.SampleRate = DefaultSampleRate
	}
	if o.Channels == 0 {
		o.Channels = DefaultChannels
	}
	if o.BitsPerSample == 0 {
		o.BitsPerSample = DefaultBitsPerSample
	}
	if o.Source == "" {
		o.Source = DefaultSource
	}
	if o.OutputFileName == "" {
		o.OutputFileName = DefaultOutputFileName
	}
	return o
}

// SessionConfig is the immutable capture configuration produced by Init.
type SessionConfig struct {
	SampleRate     uint32
	Channels       uint16
	BitsPerSample  uint16
	Source         audio.Source
	DeviceID       string
	OutputPath     string
	TempPath       string
	ReadChunkBytes int
}

// Params is the device request for this configuration
func (c SessionConfig) Params() audio.Params {
	return audio.Params{
		SampleRate:    int(c.SampleRate),
		Channels:      int(c.Channels),
		BitsPerSample: int(c.BitsPerSample),
		Source:        c.Source,
		DeviceID:      c.DeviceID,
	}
}

// Format is the PCM layout written into the WAV header
func (c SessionConfig) Format() wav.Format {
	return wav.Format{
		SampleRate:    c.SampleRate,
		Channels:      c.Channels,
		BitsPerSample: c.BitsPerSample,
	}
}

// Resolve fills in defaults, validates the PCM layout and sizes reads from
// the device's minimum buffer.
func Resolve(o Options, dataDir string, dev audio.Device) (SessionConfig, error) {
	o = o.withDefaults()

	params := audio.Params{
		SampleRate:    o.SampleRate,
		Channels:      o.Channels,
		BitsPerSample: o.BitsPerSample,
		Source:        o.Source,
		DeviceID:      o.DeviceID,
	}
	if err := params.Validate(); err != nil {
		return SessionConfig{}, err
	}

	minBytes, err := dev.MinBufferSize(params)
	if err != nil {
		return SessionConfig{}, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	if frame := params.FrameBytes(); minBytes < frame {
		minBytes = frame
	} else {
		minBytes -= minBytes % frame
	}

	if !filepath.IsLocal(o.OutputFileName) || o.OutputFileName == TempFileName {
		return SessionConfig{}, fmt.Errorf("%w: %q", ErrInvalidOutputName, o.OutputFileName)
	}

	return SessionConfig{
		SampleRate:     uint32(o.SampleRate),
		Channels:       uint16(o.Channels),
		BitsPerSample:  uint16(o.BitsPerSample),
		Source:         o.Source,
		DeviceID:       o.DeviceID,
		OutputPath:     filepath.Join(dataDir, o.OutputFileName),
		TempPath:       filepath.Join(dataDir, TempFileName),
		ReadChunkBytes: minBytes,
	}, nil
}

// payloadDuration is how much audio n bytes of PCM hold
func (c SessionConfig) payloadDuration(n int64) time.Duration {
	h := wav.Header{
		SampleRate:    c.SampleRate,
		Channels:      c.Channels,
		BitsPerSample: c.BitsPerSample,
		DataSize:      uint32(n),
	}
	return h.Duration()
}
