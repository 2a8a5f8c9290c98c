//go:build !darwin

package permissions

// EnsureMicrophone is a no-op on non-macOS platforms.
func EnsureMicrophone() error {
	return nil
}

// EnsurePermissions is a no-op on non-macOS platforms.
func EnsurePermissions(hotkeys bool) error {
	return nil
}
