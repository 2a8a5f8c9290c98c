package wav

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHeaderLayout(t *testing.T) {
	tests := []struct {
		name          string
		sampleRate    uint32
		channels      uint16
		bitsPerSample uint16
		payload       uint32
		byteRate      uint32
		blockAlign    uint16
	}{
		{"mono_16bit_16k", 16000, 1, 16, 2560, 32000, 2},
		{"stereo_16bit_44k", 44100, 2, 16, 0, 176400, 4},
		{"mono_8bit_8k", 8000, 1, 8, 1, 8000, 1},
		{"stereo_8bit_48k", 48000, 2, 8, 96000, 96000, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := BuildHeader(tt.payload, tt.sampleRate, tt.channels, tt.bitsPerSample)

			require.Len(t, h, HeaderSize)
			assert.Equal(t, "RIFF", string(h[0:4]))
			assert.Equal(t, "WAVE", string(h[8:12]))
			assert.Equal(t, "fmt ", string(h[12:16]))
			assert.Equal(t, "data", string(h[36:40]))

			assert.Equal(t, tt.payload+36, binary.LittleEndian.Uint32(h[4:8]))
			assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(h[16:20]))
			assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(h[20:22]))
			assert.Equal(t, tt.channels, binary.LittleEndian.Uint16(h[22:24]))
			assert.Equal(t, tt.sampleRate, binary.LittleEndian.Uint32(h[24:28]))
			assert.Equal(t, tt.byteRate, binary.LittleEndian.Uint32(h[28:32]))
			assert.Equal(t, tt.blockAlign, binary.LittleEndian.Uint16(h[32:34]))
			assert.Equal(t, tt.bitsPerSample, binary.LittleEndian.Uint16(h[34:36]))
			assert.Equal(t, tt.payload, binary.LittleEndian.Uint32(h[40:44]))
		})
	}
}

func TestBuildHeaderExactBytes(t *testing.T) {
	want := []byte{
		'R', 'I', 'F', 'F', 0x24, 0x0a, 0x00, 0x00,
		'W', 'A', 'V', 'E', 'f', 'm', 't', ' ',
		0x10, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
		0x80, 0x3e, 0x00, 0x00, 0x00, 0x7d, 0x00, 0x00,
		0x02, 0x00, 0x10, 0x00, 'd', 'a', 't', 'a',
		0x00, 0x0a, 0x00, 0x00,
	}

	got := BuildHeader(2560, 16000, 1, 16)
	assert.Equal(t, want, got)
}

func TestParseHeaderRoundTrip(t *testing.T) {
	for _, rate := range []uint32{8000, 16000, 22050, 44100, 48000} {
		for _, channels := range []uint16{1, 2} {
			for _, bits := range []uint16{8, 16} {
				payload := rate * uint32(channels) * uint32(bits/8) / 10

				h, err := ParseHeader(BuildHeader(payload, rate, channels, bits))
				require.NoError(t, err)

				assert.Equal(t, Header{
					SampleRate:    rate,
					Channels:      channels,
					BitsPerSample: bits,
					DataSize:      payload,
				}, h)
				assert.Equal(t, 100*time.Millisecond, h.Duration())
			}
		}
	}
}

func TestParseHeaderErrors(t *testing.T) {
	good := BuildHeader(10, 16000, 1, 16)

	_, err := ParseHeader(good[:20])
	assert.ErrorIs(t, err, ErrShortHeader)

	bad := append([]byte(nil), good...)
	copy(bad[8:12], "AVI ")
	_, err = ParseHeader(bad)
	assert.ErrorIs(t, err, ErrNotWave)

	bad = append([]byte(nil), good...)
	binary.LittleEndian.PutUint16(bad[20:22], 3)
	_, err = ParseHeader(bad)
	assert.ErrorIs(t, err, ErrNotPCM)

	bad = append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(bad[4:8], 99)
	_, err = ParseHeader(bad)
	assert.ErrorIs(t, err, ErrNotWave)
}

func TestEncode(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6}
	out := Encode(pcm, 16000, 1, 16)

	require.Len(t, out, HeaderSize+len(pcm))
	assert.Equal(t, pcm, out[HeaderSize:])

	h, err := ParseHeader(out)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(pcm)), h.DataSize)
}
