package cliconfig

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	logpkg "github.com/bft-labs/sheetshot/pkg/log"
)

var logger = NewLogger(os.Stderr, "info", false)

// Logger returns the package logger.
func Logger() zerolog.Logger {
	return logger
}

// NewLogger builds the CLI logger. Console output unless json is set.
func NewLogger(w io.Writer, level string, json bool) zerolog.Logger {
	out := w
	if !json {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(logpkg.ParseLevel(level)).With().Timestamp().Logger()
}

// SetLogger replaces the package logger.
func SetLogger(l zerolog.Logger) {
	logger = l
}
