// Package logging provides the process-wide zerolog root logger and
// component-scoped child loggers.
package logging

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	defaultLogger *zerolog.Logger
	loggerOnce    sync.Once
)

func initDefaultLogger() {
	level := zerolog.InfoLevel
	if env := os.Getenv("AUDIOREMOTED_LOG_LEVEL"); env != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(env)); err == nil {
			level = parsed
		}
	}

	var w zerolog.LevelWriter
	if isatty() {
		cw := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		w = zerolog.MultiLevelWriter(cw)
	} else {
		w = zerolog.MultiLevelWriter(os.Stderr)
	}

	l := zerolog.New(w).Level(level).With().Timestamp().Logger()
	defaultLogger = &l
}

func isatty() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// GetDefaultLogger returns the process root logger, initializing it on first use.
func GetDefaultLogger() *zerolog.Logger {
	loggerOnce.Do(initDefaultLogger)
	return defaultLogger
}

// GetSubsystemLogger returns a child logger tagged with a component name.
func GetSubsystemLogger(component string) *zerolog.Logger {
	l := GetDefaultLogger().With().Str("component", component).Logger()
	return &l
}

// SetLevel adjusts the root logger level at runtime (config reload, CLI flag).
func SetLevel(level string) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		GetDefaultLogger().Warn().Str("level", level).Msg("unknown log level, keeping current")
		return
	}
	l := GetDefaultLogger().Level(parsed)
	defaultLogger = &l
}
