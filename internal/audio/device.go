package audio

import "sync"

// Device abstracts the OS primitives the controller drives: output volume,
// input volume and the input mute flag. All volumes are scalars in [0.0, 1.0].
type Device interface {
	Name() string
	OutputVolume() (float64, error)
	SetOutputVolume(v float64) error
	InputVolume() (float64, error)
	SetInputVolume(v float64) error
	InputMuted() (bool, error)
	SetInputMuted(muted bool) error
}

// InputSwitcher is implemented by devices that can change the system default
// input device. Required for the device-switch mute mode.
type InputSwitcher interface {
	CurrentInput() (string, error)
	SwitchInput(name string) error
}

// MemoryDevice is an in-process Device used on platforms without a native
// backend and throughout the tests. It honors the same clamping contract as
// the native backends.
type MemoryDevice struct {
	mu         sync.RWMutex
	name       string
	outVolume  float64
	inVolume   float64
	inMuted    bool
	inputName  string
	failAll    bool
	switchable bool
}

// NewMemoryDevice returns a memory device with full output volume, full input
// volume and the microphone unmuted.
func NewMemoryDevice(name string) *MemoryDevice {
	return &MemoryDevice{
		name:       name,
		outVolume:  1.0,
		inVolume:   1.0,
		inputName:  "Built-in Microphone",
		switchable: true,
	}
}

func (d *MemoryDevice) Name() string { return d.name }

func (d *MemoryDevice) OutputVolume() (float64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.failAll {
		return 0, ErrNoDevice
	}
	return d.outVolume, nil
}

func (d *MemoryDevice) SetOutputVolume(v float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll {
		return ErrNoDevice
	}
	d.outVolume = clampVolume(v)
	return nil
}

func (d *MemoryDevice) InputVolume() (float64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.failAll {
		return 0, ErrNoDevice
	}
	return d.inVolume, nil
}

func (d *MemoryDevice) SetInputVolume(v float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll {
		return ErrNoDevice
	}
	d.inVolume = clampVolume(v)
	return nil
}

func (d *MemoryDevice) InputMuted() (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.failAll {
		return false, ErrNoDevice
	}
	return d.inMuted, nil
}

func (d *MemoryDevice) SetInputMuted(muted bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll {
		return ErrNoDevice
	}
	d.inMuted = muted
	return nil
}

func (d *MemoryDevice) CurrentInput() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.failAll || !d.switchable {
		return "", ErrSwitchUnsupported
	}
	return d.inputName, nil
}

func (d *MemoryDevice) SwitchInput(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll || !d.switchable {
		return ErrSwitchUnsupported
	}
	d.inputName = name
	return nil
}

// SetUnavailable makes every device call fail with ErrNoDevice. Used by tests
// to exercise the adapter error paths.
func (d *MemoryDevice) SetUnavailable(unavailable bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failAll = unavailable
}

// SetSwitchable toggles InputSwitcher support. Used by tests.
func (d *MemoryDevice) SetSwitchable(switchable bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.switchable = switchable
}
