// Package logx configures the process-wide zerolog logger.
package logx

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config controls log output.
type Config struct {
	// Debug lowers the level from info to debug.
	Debug bool
	// Pretty switches from JSON to the human console writer.
	Pretty bool
}

// Init configures the global logger. Call once, before any component logs.
func Init(cfg Config) {
	if cfg.Pretty {
		log.Logger = zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = os.Stderr
		})).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Logger.Level(level)
}

// Component returns a logger tagged with the component name, so log lines
// read like "component=factory ..." across the codebase.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
