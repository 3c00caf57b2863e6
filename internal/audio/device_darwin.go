//go:build darwin

package audio

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// systemDevice drives the macOS default devices through osascript and, for
// input switching, the SwitchAudioSource utility. AppleScript reports volumes
// as 0-100 integers; this backend converts to/from the [0.0, 1.0] scalar.
//
// AppleScript exposes no mute flag for the input device, so the hardware
// flag is realized by zeroing the input volume and restoring the previous
// value on unmute.
type systemDevice struct {
	mu sync.Mutex

	// last non-zero input volume, for restoring after an emulated mute
	savedInVolume int
	inMuted       bool
}

// NewSystemDevice returns the native Device for this platform.
func NewSystemDevice() (Device, error) {
	if _, err := exec.LookPath("osascript"); err != nil {
		return nil, fmt.Errorf("%w: osascript not found", ErrNoDevice)
	}
	return &systemDevice{savedInVolume: 100}, nil
}

func (d *systemDevice) Name() string { return "macOS default device" }

func osascript(script string) (string, error) {
	out, err := exec.Command("osascript", "-e", script).Output()
	if err != nil {
		return "", fmt.Errorf("%w: osascript: %v", ErrDeviceCommand, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func queryVolume(field string) (float64, error) {
	out, err := osascript(field + " of (get volume settings)")
	if err != nil {
		return 0, err
	}
	if out == "missing value" {
		return 0, ErrNoDevice
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("%w: unexpected osascript output %q", ErrDeviceCommand, out)
	}
	return float64(n) / 100.0, nil
}

func (d *systemDevice) OutputVolume() (float64, error) {
	return queryVolume("output volume")
}

func (d *systemDevice) SetOutputVolume(v float64) error {
	n := int(clampVolume(v)*100.0 + 0.5)
	_, err := osascript(fmt.Sprintf("set volume output volume %d", n))
	return err
}

func (d *systemDevice) InputVolume() (float64, error) {
	return queryVolume("input volume")
}

func (d *systemDevice) SetInputVolume(v float64) error {
	n := int(clampVolume(v)*100.0 + 0.5)
	_, err := osascript(fmt.Sprintf("set volume input volume %d", n))
	return err
}

func (d *systemDevice) InputMuted() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inMuted, nil
}

func (d *systemDevice) SetInputMuted(muted bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if muted == d.inMuted {
		return nil
	}
	if muted {
		v, err := d.InputVolume()
		if err != nil {
			return err
		}
		if n := int(v*100.0 + 0.5); n > 0 {
			d.savedInVolume = n
		}
		if _, err := osascript("set volume input volume 0"); err != nil {
			return err
		}
	} else {
		if _, err := osascript(fmt.Sprintf("set volume input volume %d", d.savedInVolume)); err != nil {
			return err
		}
	}
	d.inMuted = muted
	return nil
}

func (d *systemDevice) CurrentInput() (string, error) {
	out, err := switchAudioSource("-t", "input", "-c")
	if err != nil {
		return "", err
	}
	return out, nil
}

func (d *systemDevice) SwitchInput(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty input device name", ErrDeviceCommand)
	}
	_, err := switchAudioSource("-t", "input", "-s", name)
	return err
}

func switchAudioSource(args ...string) (string, error) {
	path, err := exec.LookPath("SwitchAudioSource")
	if err != nil {
		return "", fmt.Errorf("%w: SwitchAudioSource not installed", ErrSwitchUnsupported)
	}
	out, err := exec.Command(path, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%w: SwitchAudioSource: %v", ErrDeviceCommand, err)
	}
	return strings.TrimSpace(string(out)), nil
}
