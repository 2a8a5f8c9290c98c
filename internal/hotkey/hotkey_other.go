//go:build !linux && !darwin

package hotkey

// New reports ErrUnsupported; the tray menu still works without a hotkey
func New() (Manager, error) {
	return nil, ErrUnsupported
}
