// Package audio wraps the OS volume and microphone-mute primitives behind a
// Controller with explicit dependency injection: callers construct a
// Controller around a Device backend instead of reaching for process globals.
package audio

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/audioremote/audioremoted/internal/logging"
)

// MuteMode selects which underlying mechanism realizes "muted".
type MuteMode string

const (
	// MuteModeHardware drives the device's input mute flag.
	MuteModeHardware MuteMode = "hardware-mute"
	// MuteModeVolumeZero sets the input volume to zero and restores the
	// pre-mute volume on unmute.
	MuteModeVolumeZero MuteMode = "volume-zero"
	// MuteModeDeviceSwitch swaps the default input device for a null device
	// and back.
	MuteModeDeviceSwitch MuteMode = "device-switch"
)

// DefaultVolumeStep is the increase/decrease step used when none is configured.
const DefaultVolumeStep = 0.10

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	Device     Device
	Mode       MuteMode
	VolumeStep float64
	// NullInputDevice is the input device name used by the device-switch mode.
	NullInputDevice string
	Logger          *zerolog.Logger
}

// Controller exposes get/set/toggle operations over a Device. All operations
// are safe for concurrent use.
type Controller struct {
	mu     sync.Mutex
	device Device
	mode   MuteMode
	step   float64
	logger *zerolog.Logger

	// Mute bookkeeping for the non-hardware modes. The device only carries a
	// mute flag in hardware mode; the other modes track the logical state and
	// what is needed to undo them here.
	muted          bool
	savedInVolume  float64
	savedOutVolume float64
	savedInput     string
	nullInput      string

	subs *subscriptions
}

// NewController validates the config and constructs a Controller. The initial
// mute state is read from the device when the hardware mode is selected.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Device == nil {
		return nil, ErrNoDevice
	}
	if cfg.Mode == "" {
		cfg.Mode = MuteModeHardware
	}
	if err := ValidateMuteMode(cfg.Mode); err != nil {
		return nil, err
	}
	if cfg.VolumeStep == 0 {
		cfg.VolumeStep = DefaultVolumeStep
	}
	if err := ValidateVolumeStep(cfg.VolumeStep); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetSubsystemLogger("audio")
	}

	c := &Controller{
		device:        cfg.Device,
		mode:          cfg.Mode,
		step:          cfg.VolumeStep,
		logger:        logger,
		savedInVolume: 1.0,
		nullInput:     cfg.NullInputDevice,
		subs:          newSubscriptions(logger),
	}

	if cfg.Mode == MuteModeHardware {
		muted, err := cfg.Device.InputMuted()
		if err != nil {
			return nil, fmt.Errorf("read initial mute state: %w", err)
		}
		c.muted = muted
	}
	return c, nil
}

// Mode returns the configured mute mode.
func (c *Controller) Mode() MuteMode { return c.mode }

// Volume returns the current output volume in [0.0, 1.0].
func (c *Controller) Volume() (float64, error) {
	v, err := c.device.OutputVolume()
	if err != nil {
		recordAdapterError()
		return 0, fmt.Errorf("get output volume: %w", err)
	}
	return v, nil
}

// SetVolume sets the output volume, clamped to [0.0, 1.0]. Setting the
// current value is a no-op observable result.
func (c *Controller) SetVolume(v float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setVolumeLocked(clampVolume(v))
}

func (c *Controller) setVolumeLocked(v float64) error {
	current, err := c.device.OutputVolume()
	if err != nil {
		recordAdapterError()
		return fmt.Errorf("get output volume: %w", err)
	}
	if current == v {
		return nil
	}
	if err := c.device.SetOutputVolume(v); err != nil {
		recordAdapterError()
		return fmt.Errorf("set output volume: %w", err)
	}
	recordVolumeSet(v)
	c.subs.notifyVolumeChanged(v)
	return nil
}

// Increase raises the output volume by one step and returns the new volume.
func (c *Controller) Increase() (float64, error) {
	return c.stepVolume(c.step)
}

// Decrease lowers the output volume by one step and returns the new volume.
func (c *Controller) Decrease() (float64, error) {
	return c.stepVolume(-c.step)
}

func (c *Controller) stepVolume(delta float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, err := c.device.OutputVolume()
	if err != nil {
		recordAdapterError()
		return 0, fmt.Errorf("get output volume: %w", err)
	}
	next := clampVolume(current + delta)
	if err := c.setVolumeLocked(next); err != nil {
		return 0, err
	}
	return next, nil
}

// ToggleOutputMute silences the output by zeroing its volume, or restores the
// pre-mute volume, and returns the resulting volume.
func (c *Controller) ToggleOutputMute() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.device.OutputVolume()
	if err != nil {
		recordAdapterError()
		return 0, fmt.Errorf("get output volume: %w", err)
	}

	var next float64
	if current > 0 {
		c.savedOutVolume = current
		next = 0
	} else {
		next = c.savedOutVolume
		if next == 0 {
			next = 1.0
		}
	}
	if err := c.setVolumeLocked(next); err != nil {
		return 0, err
	}
	return next, nil
}

// Muted reports whether the microphone is currently muted.
func (c *Controller) Muted() (bool, error) {
	if c.mode == MuteModeHardware {
		muted, err := c.device.InputMuted()
		if err != nil {
			recordAdapterError()
			return false, fmt.Errorf("get mute state: %w", err)
		}
		return muted, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted, nil
}

// ToggleMute flips the microphone mute state and returns the new state.
// On error the previous state is left untouched.
func (c *Controller) ToggleMute() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.mutedLocked()
	if err != nil {
		recordAdapterError()
		return false, fmt.Errorf("get mute state: %w", err)
	}
	next := !current
	if err := c.setMutedLocked(next); err != nil {
		return current, err
	}
	return next, nil
}

// SetMuted drives the microphone to the requested state. Setting the current
// state is a no-op.
func (c *Controller) SetMuted(muted bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.mutedLocked()
	if err != nil {
		recordAdapterError()
		return fmt.Errorf("get mute state: %w", err)
	}
	if current == muted {
		return nil
	}
	return c.setMutedLocked(muted)
}

func (c *Controller) mutedLocked() (bool, error) {
	if c.mode == MuteModeHardware {
		return c.device.InputMuted()
	}
	return c.muted, nil
}

func (c *Controller) setMutedLocked(muted bool) error {
	switch c.mode {
	case MuteModeHardware:
		if err := c.device.SetInputMuted(muted); err != nil {
			recordAdapterError()
			return fmt.Errorf("set input mute flag: %w", err)
		}

	case MuteModeVolumeZero:
		if muted {
			v, err := c.device.InputVolume()
			if err != nil {
				recordAdapterError()
				return fmt.Errorf("get input volume: %w", err)
			}
			if err := c.device.SetInputVolume(0); err != nil {
				recordAdapterError()
				return fmt.Errorf("zero input volume: %w", err)
			}
			if v > 0 {
				c.savedInVolume = v
			}
		} else {
			if err := c.device.SetInputVolume(c.savedInVolume); err != nil {
				recordAdapterError()
				return fmt.Errorf("restore input volume: %w", err)
			}
		}

	case MuteModeDeviceSwitch:
		switcher, ok := c.device.(InputSwitcher)
		if !ok {
			recordAdapterError()
			return ErrSwitchUnsupported
		}
		if muted {
			prev, err := switcher.CurrentInput()
			if err != nil {
				recordAdapterError()
				return fmt.Errorf("get current input: %w", err)
			}
			if err := switcher.SwitchInput(c.nullInput); err != nil {
				recordAdapterError()
				return fmt.Errorf("switch to null input: %w", err)
			}
			c.savedInput = prev
		} else {
			if err := switcher.SwitchInput(c.savedInput); err != nil {
				recordAdapterError()
				return fmt.Errorf("restore input device: %w", err)
			}
		}
	}

	c.muted = muted
	recordMuteToggled(muted)
	c.logger.Info().Bool("muted", muted).Str("mode", string(c.mode)).Msg("microphone mute state changed")
	c.subs.notifyMuteChanged(muted)
	return nil
}

// Subscribe registers for state-change notifications. See subscriptions.
func (c *Controller) Subscribe(buffer int) (<-chan StateChange, func()) {
	return c.subs.subscribe(buffer)
}
