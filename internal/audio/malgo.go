package audio

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

const (
	malgoPeriod           = 20 * time.Millisecond
	malgoLowLatencyPeriod = 10 * time.Millisecond
	malgoMinReadTimeout   = 100 * time.Millisecond
)

type malgoCapture struct {
	log zerolog.Logger
	ctx *malgo.AllocatedContext
}

func newMalgo(log zerolog.Logger) (Device, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize miniaudio: %w", err)
	}
	return &malgoCapture{
		log: log.With().Str("backend", "malgo").Logger(),
		ctx: ctx,
	}, nil
}

func (m *malgoCapture) findDevice(deviceID string) (*malgo.DeviceInfo, error) {
	if deviceID == "" {
		return nil, nil
	}
	devices, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for i := range devices {
		if devices[i].Name() == deviceID {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
}

func (m *malgoCapture) MinBufferSize(params Params) (int, error) {
	if err := params.Validate(); err != nil {
		return 0, err
	}
	if _, err := m.findDevice(params.DeviceID); err != nil {
		return 0, err
	}
	period := malgoPeriod
	if params.Source.LowLatency() {
		period = malgoLowLatencyPeriod
	}
	return minBufferBytes(params, period), nil
}

func (m *malgoCapture) Open(params Params, readBytes, bufferBytes int) (Handle, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	info, err := m.findDevice(params.DeviceID)
	if err != nil {
		return nil, err
	}

	frameBytes := params.FrameBytes()
	periodFrames := readBytes / frameBytes
	if periodFrames <= 0 {
		return nil, fmt.Errorf("read size %d smaller than one frame", readBytes)
	}
	periods := bufferBytes / readBytes
	if periods < 2 {
		periods = 2
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	if params.BitsPerSample == 8 {
		deviceConfig.Capture.Format = malgo.FormatU8
	}
	deviceConfig.Capture.Channels = uint32(params.Channels)
	deviceConfig.SampleRate = uint32(params.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(periodFrames)
	deviceConfig.Periods = uint32(periods)
	deviceConfig.Alsa.NoMMap = 1
	if info != nil {
		deviceConfig.Capture.DeviceID = info.ID.Pointer()
	}

	periodDur := time.Duration(float64(periodFrames) / float64(params.SampleRate) * float64(time.Second))
	timeout := 4 * periodDur
	if timeout < malgoMinReadTimeout {
		timeout = malgoMinReadTimeout
	}

	h := &malgoHandle{
		log:     m.log,
		blocks:  make(chan []byte, periods*4),
		timeout: timeout,
	}
	h.reader.next = h.nextBlock

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			// input is reused by miniaudio once the callback returns.
			block := make([]byte, len(input))
			copy(block, input)

			// Never stall the device callback.
			select {
			case h.blocks <- block:
			default:
				h.dropped.Add(1)
			}
		},
	}

	device, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("failed to start capture device: %w", err)
	}
	h.device = device

	m.log.Debug().
		Str("device", params.DeviceID).
		Int("period_frames", periodFrames).
		Int("periods", periods).
		Msg("Opened capture device")

	return h, nil
}

func (m *malgoCapture) ListDevices() ([]AudioDevice, error) {
	devices, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]AudioDevice, 0, len(devices))
	for _, d := range devices {
		result = append(result, AudioDevice{
			ID:      d.Name(),
			Name:    d.Name(),
			Default: d.IsDefault != 0,
		})
	}
	return result, nil
}

func (m *malgoCapture) Close() error {
	err := m.ctx.Uninit()
	m.ctx.Free()
	return err
}

type malgoHandle struct {
	log     zerolog.Logger
	device  *malgo.Device
	blocks  chan []byte
	timeout time.Duration
	dropped atomic.Int64
	reader  chunkReader
}

// nextBlock waits for the callback to deliver audio. A device that has gone
// quiet yields an empty block so the caller can observe cancellation.
func (h *malgoHandle) nextBlock() ([]byte, error) {
	select {
	case block := <-h.blocks:
		return block, nil
	case <-time.After(h.timeout):
		return nil, nil
	}
}

func (h *malgoHandle) Read(p []byte) (int, error) {
	return h.reader.Read(p)
}

func (h *malgoHandle) Stop() error {
	if n := h.dropped.Load(); n > 0 {
		h.log.Warn().Int64("dropped_blocks", n).Msg("Capture callback dropped audio")
	}
	return h.device.Stop()
}

func (h *malgoHandle) Release() error {
	h.device.Uninit()
	return nil
}
