// Package logging builds the zerolog loggers used across armctl.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the log level, format and destination.
type Config struct {
	Level  string    // zerolog level name, e.g. "debug", "info"
	Format string    // "console" or "json"
	Output io.Writer // defaults to os.Stderr
}

// New creates a logger with a timestamp on every event.
func New(cfg Config) (zerolog.Logger, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	switch cfg.Format {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", cfg.Format)
	}

	level := zerolog.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("parse log level: %w", err)
		}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// Component returns a child logger tagged with a component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
