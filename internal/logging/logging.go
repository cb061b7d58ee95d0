// Package logging provides the shared zerolog setup for qbdtest.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/tty"
)

// New creates the default structured logger writing to stderr.
// Console output with RFC3339 timestamps when stderr is a terminal,
// JSON lines otherwise; level from QBDTEST_LOG_LEVEL.
func New() zerolog.Logger {
	var output io.Writer = os.Stderr
	if tty.IsTTY(os.Stderr) {
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
	}
	logger := zerolog.New(output).With().Timestamp().Logger()
	return logger.Level(levelFromEnv())
}

// NewWithWriter creates a structured logger with a custom writer.
// Used by tests to capture output.
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// Component returns a child logger tagged with a component field.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

func levelFromEnv() zerolog.Level {
	switch os.Getenv("QBDTEST_LOG_LEVEL") {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
