//go:build !darwin

package audio

// NewSystemDevice returns an in-memory device on platforms without a native
// backend so the daemon and its API remain exercisable during development.
func NewSystemDevice() (Device, error) {
	return NewMemoryDevice("in-memory device"), nil
}
