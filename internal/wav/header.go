// Package wav builds and finalizes uncompressed linear-PCM WAV files.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// HeaderSize is the size of the canonical RIFF/WAVE header for PCM.
const HeaderSize = 44

const (
	formatPCM   = 1
	fmtChunkLen = 16
	// riffOverhead is everything in the header after the RIFF size field,
	// minus the payload itself.
	riffOverhead = HeaderSize - 8
)

var (
	// ErrShortHeader is returned when fewer than HeaderSize bytes are available.
	ErrShortHeader = errors.New("wav header too short")
	// ErrNotWave is returned when the RIFF/WAVE/fmt/data tags don't match.
	ErrNotWave = errors.New("not a RIFF/WAVE file")
	// ErrNotPCM is returned when the format code is not linear PCM.
	ErrNotPCM = errors.New("wav format is not linear PCM")
)

// Header is the decoded form of the 44-byte header.
type Header struct {
	SampleRate    uint32
	Channels      uint16
	BitsPerSample uint16
	DataSize      uint32
}

// ByteRate is sampleRate * channels * bitsPerSample/8.
func (h Header) ByteRate() uint32 {
	return h.SampleRate * uint32(h.Channels) * uint32(h.BitsPerSample/8)
}

// BlockAlign is channels * bitsPerSample/8.
func (h Header) BlockAlign() uint16 {
	return h.Channels * (h.BitsPerSample / 8)
}

// Duration of the payload described by the header.
func (h Header) Duration() time.Duration {
	rate := h.ByteRate()
	if rate == 0 {
		return 0
	}
	return time.Duration(float64(h.DataSize) / float64(rate) * float64(time.Second))
}

// BuildHeader returns the 44-byte WAV header for a PCM payload of
// payloadBytes bytes. All multi-byte fields are little-endian.
func BuildHeader(payloadBytes uint32, sampleRate uint32, channels, bitsPerSample uint16) []byte {
	h := Header{
		SampleRate:    sampleRate,
		Channels:      channels,
		BitsPerSample: bitsPerSample,
		DataSize:      payloadBytes,
	}

	header := make([]byte, HeaderSize)

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], payloadBytes+riffOverhead)
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], fmtChunkLen)
	binary.LittleEndian.PutUint16(header[20:22], formatPCM)
	binary.LittleEndian.PutUint16(header[22:24], channels)
	binary.LittleEndian.PutUint32(header[24:28], sampleRate)
	binary.LittleEndian.PutUint32(header[28:32], h.ByteRate())
	binary.LittleEndian.PutUint16(header[32:34], h.BlockAlign())
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], payloadBytes)

	return header
}

// Encode returns a complete WAV file: header followed by pcm.
func Encode(pcm []byte, sampleRate uint32, channels, bitsPerSample uint16) []byte {
	out := make([]byte, HeaderSize+len(pcm))
	copy(out, BuildHeader(uint32(len(pcm)), sampleRate, channels, bitsPerSample))
	copy(out[HeaderSize:], pcm)
	return out
}

// ParseHeader decodes a header produced by BuildHeader.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: got %d bytes", ErrShortHeader, len(b))
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" ||
		string(b[12:16]) != "fmt " || string(b[36:40]) != "data" {
		return Header{}, ErrNotWave
	}
	if format := binary.LittleEndian.Uint16(b[20:22]); format != formatPCM {
		return Header{}, fmt.Errorf("%w: format code %d", ErrNotPCM, format)
	}

	h := Header{
		Channels:      binary.LittleEndian.Uint16(b[22:24]),
		SampleRate:    binary.LittleEndian.Uint32(b[24:28]),
		BitsPerSample: binary.LittleEndian.Uint16(b[34:36]),
		DataSize:      binary.LittleEndian.Uint32(b[40:44]),
	}

	if riff := binary.LittleEndian.Uint32(b[4:8]); riff != h.DataSize+riffOverhead {
		return Header{}, fmt.Errorf("%w: riff size %d does not match data size %d", ErrNotWave, riff, h.DataSize)
	}

	return h, nil
}
