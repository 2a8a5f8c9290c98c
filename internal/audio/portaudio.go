package audio

import (
	"errors"
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
)

type portAudioCapture struct {
	log zerolog.Logger
}

func newPortAudio(log zerolog.Logger) (Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &portAudioCapture{log: log.With().Str("backend", "portaudio").Logger()}, nil
}

func (p *portAudioCapture) findDevice(deviceID string) (*portaudio.DeviceInfo, error) {
	if deviceID == "" {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == deviceID && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
}

func (p *portAudioCapture) MinBufferSize(params Params) (int, error) {
	if err := params.Validate(); err != nil {
		return 0, err
	}
	device, err := p.findDevice(params.DeviceID)
	if err != nil {
		return 0, err
	}
	return minBufferBytes(params, device.DefaultLowInputLatency), nil
}

func (p *portAudioCapture) Open(params Params, readBytes, bufferBytes int) (Handle, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	device, err := p.findDevice(params.DeviceID)
	if err != nil {
		return nil, err
	}

	frameBytes := params.FrameBytes()
	frames := readBytes / frameBytes
	if frames <= 0 {
		return nil, fmt.Errorf("read size %d smaller than one frame", readBytes)
	}

	latency := time.Duration(float64(bufferBytes/frameBytes) / float64(params.SampleRate) * float64(time.Second))
	if !params.Source.LowLatency() && latency < device.DefaultHighInputLatency {
		latency = device.DefaultHighInputLatency
	}

	h := &portAudioHandle{
		log: p.log,
		out: make([]byte, frames*frameBytes),
	}

	// Blocking-mode buffers are interleaved: frames * channels samples.
	var buffer interface{}
	if params.BitsPerSample == 8 {
		h.u8 = make([]uint8, frames*params.Channels)
		buffer = h.u8
	} else {
		h.s16 = make([]int16, frames*params.Channels)
		buffer = h.s16
	}

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: params.Channels,
			Latency:  latency,
		},
		SampleRate:      float64(params.SampleRate),
		FramesPerBuffer: frames,
	}, buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to start audio stream: %w", err)
	}

	h.stream = stream
	h.reader.next = h.readBlock

	p.log.Debug().
		Str("device", device.Name).
		Int("frames_per_buffer", frames).
		Dur("latency", latency).
		Msg("Opened input stream")

	return h, nil
}

func (p *portAudioCapture) ListDevices() ([]AudioDevice, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]AudioDevice, 0, len(devices))
	defaultDevice, _ := portaudio.DefaultInputDevice()

	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, AudioDevice{
				ID:      d.Name,
				Name:    d.Name,
				Default: d == defaultDevice,
			})
		}
	}

	return result, nil
}

func (p *portAudioCapture) Close() error {
	return portaudio.Terminate()
}

type portAudioHandle struct {
	log       zerolog.Logger
	stream    *portaudio.Stream
	s16       []int16
	u8        []uint8
	out       []byte
	reader    chunkReader
	overflows int
}

func (h *portAudioHandle) readBlock() ([]byte, error) {
	if err := h.stream.Read(); err != nil {
		if !errors.Is(err, portaudio.InputOverflowed) {
			return nil, fmt.Errorf("failed to read audio stream: %w", err)
		}
		// The buffer still holds valid samples; the device just lost some
		// before them.
		h.overflows++
		h.log.Debug().Int("overflows", h.overflows).Msg("Input overflowed")
	}

	if h.u8 != nil {
		copy(h.out, h.u8)
		return h.out, nil
	}
	return int16ToBytes(h.out, h.s16), nil
}

func (h *portAudioHandle) Read(p []byte) (int, error) {
	return h.reader.Read(p)
}

func (h *portAudioHandle) Stop() error {
	return h.stream.Stop()
}

func (h *portAudioHandle) Release() error {
	return h.stream.Close()
}
