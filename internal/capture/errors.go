package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned for an illegal transition, e.g. a second Start
	ErrInvalidState = errors.New("invalid session state")
	// ErrNotInitialized is returned by Start before Init
	ErrNotInitialized = fmt.Errorf("%w: session not initialized", ErrInvalidState)
	// ErrDeviceUnavailable is returned when the capture handle can't be opened
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrRouteActivation is logged, never returned, when a wireless route
	// can't be engaged
	ErrRouteActivation = errors.New("audio route activation failed")
	// ErrCaptureIO rejects a recording whose hardware read or temp write failed
	ErrCaptureIO = errors.New("capture i/o failed")
	// ErrInvalidOutputName is returned by Init for an output name that
	// would leave the recordings directory
	ErrInvalidOutputName = errors.New("output file name must be relative to the recordings directory")
	// ErrFinalize rejects a recording whose WAV file couldn't be written
	ErrFinalize = errors.New("failed to finalize recording")
)
