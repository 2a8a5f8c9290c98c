package route

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/petems/micwav/internal/audio"
	"github.com/rs/zerolog"
)

// ErrNoWirelessRoute is returned by Activate when no wireless input exists
var ErrNoWirelessRoute = errors.New("no wireless input available")

// Controller switches the active input between the default device and a
// wireless one. Activation is best-effort for callers.
type Controller interface {
	WirelessAvailable() bool
	Activate() error
	Deactivate() error
}

// Selector is implemented by controllers that route by picking a specific
// input device rather than reconfiguring the system default.
type Selector interface {
	SelectedDevice() string
}

// Nop never offers a wireless route
type Nop struct{}

func (Nop) WirelessAvailable() bool { return false }
func (Nop) Activate() error         { return ErrNoWirelessRoute }
func (Nop) Deactivate() error       { return nil }

// Lister enumerates input devices
type Lister interface {
	ListDevices() ([]audio.AudioDevice, error)
}

// wirelessMarkers are lower-case substrings seen in the names PulseAudio,
// CoreAudio and WASAPI give Bluetooth inputs.
var wirelessMarkers = []string{"bluez", "bluetooth", "headset", "airpods", "hands-free"}

// DeviceRouter routes capture to a wireless input by name.
type DeviceRouter struct {
	devices   Lister
	preferred string
	log       zerolog.Logger

	mu       sync.Mutex
	selected string
}

func NewDeviceRouter(devices Lister, preferred string, log zerolog.Logger) *DeviceRouter {
	return &DeviceRouter{
		devices:   devices,
		preferred: strings.ToLower(strings.TrimSpace(preferred)),
		log:       log.With().Str("component", "route").Logger(),
	}
}

// find returns the preferred device if present, otherwise the first device
// carrying a wireless marker.
func (r *DeviceRouter) find() (string, error) {
	devices, err := r.devices.ListDevices()
	if err != nil {
		return "", err
	}

	if r.preferred != "" {
		for _, d := range devices {
			if strings.Contains(strings.ToLower(d.Name), r.preferred) {
				return d.ID, nil
			}
		}
	}

	for _, d := range devices {
		name := strings.ToLower(d.Name)
		for _, marker := range wirelessMarkers {
			if strings.Contains(name, marker) {
				return d.ID, nil
			}
		}
	}
	return "", nil
}

func (r *DeviceRouter) WirelessAvailable() bool {
	id, err := r.find()
	if err != nil {
		r.log.Debug().Err(err).Msg("Failed to list devices")
		return false
	}
	return id != ""
}

func (r *DeviceRouter) Activate() error {
	id, err := r.find()
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}
	if id == "" {
		return ErrNoWirelessRoute
	}

	r.mu.Lock()
	r.selected = id
	r.mu.Unlock()

	r.log.Info().Str("device", id).Msg("Wireless route active")
	return nil
}

func (r *DeviceRouter) Deactivate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.selected != "" {
		r.log.Info().Str("device", r.selected).Msg("Wireless route released")
	}
	r.selected = ""
	return nil
}

// SelectedDevice is the active wireless device, empty when inactive
func (r *DeviceRouter) SelectedDevice() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}
