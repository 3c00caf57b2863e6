package audio

import (
	"errors"
	"math"
)

// Validation and adapter errors
var (
	ErrNoDevice          = errors.New("no default audio device available")
	ErrInvalidVolume     = errors.New("invalid volume value")
	ErrInvalidVolumeStep = errors.New("invalid volume step")
	ErrInvalidMuteMode   = errors.New("invalid mute mode")
	ErrDeviceCommand     = errors.New("audio device command failed")
	ErrSwitchUnsupported = errors.New("device does not support input switching")
)

// ValidateVolume validates a volume value against the [0.0, 1.0] scalar range.
// The API boundary rejects out-of-range values; the adapter itself clamps.
func ValidateVolume(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrInvalidVolume
	}
	if v < 0.0 || v > 1.0 {
		return ErrInvalidVolume
	}
	return nil
}

// ValidateVolumeStep validates the configured increase/decrease step.
func ValidateVolumeStep(step float64) error {
	if math.IsNaN(step) || step <= 0.0 || step > 1.0 {
		return ErrInvalidVolumeStep
	}
	return nil
}

// ValidateMuteMode validates mute mode enum values.
func ValidateMuteMode(mode MuteMode) error {
	switch mode {
	case MuteModeHardware, MuteModeVolumeZero, MuteModeDeviceSwitch:
		return nil
	default:
		return ErrInvalidMuteMode
	}
}

func clampVolume(v float64) float64 {
	if math.IsNaN(v) {
		return 0.0
	}
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}
