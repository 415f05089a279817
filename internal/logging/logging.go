// Package logging builds the zerolog loggers used by the commands. Logs go
// to stderr so that stdout carries only reports.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// New returns a logger writing JSON lines to w at the named level.
func New(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// Stderr returns a logger on stderr, human readable when stderr is a
// terminal and JSON otherwise.
func Stderr(level string, component string) (zerolog.Logger, error) {
	var w io.Writer = os.Stderr
	if isatty.IsTerminal(os.Stderr.Fd()) {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	}

	logger, err := New(w, level)
	if err != nil {
		return logger, err
	}
	return logger.With().Str("component", component).Logger(), nil
}
