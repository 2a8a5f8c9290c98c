package audio

import (
	"errors"
	"fmt"
	"time"

	"github.com/petems/micwav/internal/config"
	"github.com/rs/zerolog"
)

var (
	// ErrDeviceNotFound is returned when a named input device doesn't exist
	ErrDeviceNotFound = errors.New("audio device not found")
	// ErrUnsupportedFormat is returned for anything but 8/16-bit PCM, 1-2 channels
	ErrUnsupportedFormat = errors.New("unsupported pcm format")
	// ErrUnknownBackend is returned by New for an unrecognised backend name
	ErrUnknownBackend = errors.New("unknown audio backend")
)

// Source is the capture source hint. Backends map it to a latency profile.
type Source string

const (
	SourceDefault            Source = "default"
	SourceMic                Source = "mic"
	SourceVoiceRecognition   Source = "voice-recognition"
	SourceVoiceCommunication Source = "voice-communication"
	SourceUnprocessed        Source = "unprocessed"
)

// LowLatency reports whether the source wants the device's low-latency path.
func (s Source) LowLatency() bool {
	return s == SourceUnprocessed || s == SourceVoiceCommunication
}

// Params selects the PCM layout and input device for a capture.
type Params struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	Source        Source
	DeviceID      string // empty selects the system default input
}

// FrameBytes is the size of one sample across all channels.
func (p Params) FrameBytes() int {
	return p.Channels * p.BitsPerSample / 8
}

// Validate checks the format is something the backends can deliver.
func (p Params) Validate() error {
	if p.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, p.SampleRate)
	}
	if p.Channels != 1 && p.Channels != 2 {
		return fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, p.Channels)
	}
	if p.BitsPerSample != 8 && p.BitsPerSample != 16 {
		return fmt.Errorf("%w: %d bits per sample", ErrUnsupportedFormat, p.BitsPerSample)
	}
	return nil
}

// Device is a capture backend. It is long-lived; Handles are per recording.
type Device interface {
	// MinBufferSize returns the smallest read size, in bytes, the device
	// can sustain for p.
	MinBufferSize(p Params) (int, error)
	// Open starts a capture delivering readBytes per hardware read, backed
	// by a device buffer of bufferBytes.
	Open(p Params, readBytes, bufferBytes int) (Handle, error)
	ListDevices() ([]AudioDevice, error)
	Close() error
}

// Handle is an open capture stream.
type Handle interface {
	// Read blocks until up to len(p) bytes of little-endian PCM are
	// available. It may return fewer bytes, including zero.
	Read(p []byte) (int, error)
	Stop() error
	Release() error
}

// AudioDevice represents an audio input device
type AudioDevice struct {
	ID      string
	Name    string
	Default bool
}

const minBufferFrames = 256

// minBufferBytes turns a device latency into a frame-aligned byte count.
func minBufferBytes(p Params, latency time.Duration) int {
	frames := int(latency.Seconds()*float64(p.SampleRate) + 0.5)
	if frames < minBufferFrames {
		frames = minBufferFrames
	}
	return frames * p.FrameBytes()
}

// New creates the capture backend named in cfg
func New(cfg config.AudioConfig, log zerolog.Logger) (Device, error) {
	switch cfg.Backend {
	case "", config.BackendPortAudio:
		return newPortAudio(log)
	case config.BackendMalgo:
		return newMalgo(log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
