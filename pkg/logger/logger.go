package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName is stamped on every event.
const ServiceName = "ebook-marketplace"

// New builds the process logger writing JSON to stdout, or console output
// when pretty is set.
func New(level string, pretty bool) zerolog.Logger {
	var w io.Writer = os.Stdout
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return build(level, w).With().Caller().Logger()
}

// NewWithWriter builds a logger on w without caller info.
func NewWithWriter(level string, w io.Writer) zerolog.Logger {
	return build(level, w)
}

// Component derives a child logger tagged with the subsystem name
// (postgres, redis, settlement, reconcile, ...).
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

func build(level string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("service", ServiceName).
		Logger()
}

// ParseLevel accepts any zerolog level name, case-insensitively. Unknown or
// empty input yields info; "disabled" is honoured so tests can silence output.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
