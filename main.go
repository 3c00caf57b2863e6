// Package audioremoted is a headless audio remote-control daemon: it wraps
// the OS microphone-mute and output-volume primitives, exposes them over a
// local HTTP webhook API, and bridges mute toggles to a browser extension for
// web video-call apps.
package audioremoted

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gwatts/rootcerts"

	"github.com/audioremote/audioremoted/internal/audio"
	"github.com/audioremote/audioremoted/internal/bridge"
	"github.com/audioremote/audioremoted/internal/logging"
	"github.com/audioremote/audioremoted/internal/update"
)

// Main loads the configuration, wires the service objects together and runs
// until SIGINT/SIGTERM. It returns an error only for unrecoverable startup
// failures; a control endpoint that fails to bind is reported and the daemon
// keeps running so it can be restarted with new settings.
func Main(configPath string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	logging.SetLevel(cfg.Logging.Level)
	logger := logging.GetDefaultLogger()

	logger.Info().Str("version", Version).Msg("starting audioremoted")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rootcerts.UpdateDefaultTransport(); err != nil {
		logger.Warn().Err(err).Msg("failed to load Root CA certificates")
	}

	device, err := audio.NewSystemDevice()
	if err != nil {
		return err
	}
	controller, err := audio.NewController(audio.ControllerConfig{
		Device:          device,
		Mode:            audio.MuteMode(cfg.Audio.MuteMode),
		VolumeStep:      cfg.Audio.VolumeStep,
		NullInputDevice: cfg.Audio.NullInputDevice,
	})
	if err != nil {
		return err
	}
	logger.Info().
		Str("device", device.Name()).
		Str("mute_mode", cfg.Audio.MuteMode).
		Msg("audio controller ready")

	var (
		dispatcher *bridge.WSDispatcher
		correlator *bridge.Correlator
	)
	if cfg.Bridge.Enabled {
		dispatcher = bridge.NewWSDispatcher(nil)
		correlator = bridge.NewCorrelator(dispatcher, cfg.Bridge.ConfirmWindow(), nil)
		dispatcher.SetConfirmFunc(correlator.Confirm)
	}

	server := NewWebServer(cfg, controller, correlator, dispatcher)
	if cfg.Server.Enabled {
		if err := server.Start(); err != nil {
			// Port in use is not fatal: the menu/CLI surface can pick a new
			// port and restart the endpoint.
			logger.Error().Err(err).Str("addr", server.Addr()).Msg("failed to start control endpoint")
		}
	} else {
		logger.Info().Msg("control endpoint disabled by settings")
	}

	if cfg.Update.Enabled {
		checker := update.NewChecker(Version, cfg.Update.ManifestURL,
			time.Duration(cfg.Update.IntervalMinutes)*time.Minute, nil)
		go checker.Run(ctx)
	}

	// Log state changes from any source (HTTP, bridge confirmations applied
	// by the extension, future hotkeys) through the adapter's subscription.
	changes, unsubscribe := controller.Subscribe(16)
	defer unsubscribe()
	go func() {
		for change := range changes {
			logger.Debug().
				Str("kind", string(change.Kind)).
				Bool("muted", change.Muted).
				Float64("volume", change.Volume).
				Msg("audio state changed")
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("audioremoted shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("control endpoint shutdown failed")
	}
	return nil
}
