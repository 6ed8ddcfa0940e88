// Package logger is the logging facade used throughout go-dlt645.
//
// The Logger interface takes a message plus alternating key/value pairs, the
// same calling convention as log/slog, so any structured logging backend can
// be plugged in. The default implementation is slog based: JSON records by
// default, colored console output (github.com/phsym/console-slog) when the
// ENV environment variable is "development".
//
// Log Levels:
//
//   - DebugLevel: frame dumps and decode diagnostics, disabled by default.
//   - InfoLevel: port open/close and poll cycle summaries.
//   - WarnLevel: discarded bytes, corrupt frames, retries.
//   - ErrorLevel: failures that abort an operation.
//   - FatalLevel: logs, then exits the process.
package logger

import (
	"fmt"
	"strings"
)

// Level is the logging severity level.
type Level int8

const (
	DebugLevel Level = iota - 1
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	default:
		return fmt.Sprintf("Level(%d)", int8(l))
	}
}

// ParseLevel converts a level name ("debug", "info", "warn"/"warning",
// "error", "fatal") into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("logger: unknown level %q", s)
	}
}

// Logger defines the logging interface used by the codec, the transport and
// the command line tools.
type Logger interface {
	// Debug logs a message at DebugLevel with optional key/value pairs.
	Debug(msg string, keysAndValues ...any)
	// Info logs a message at InfoLevel with optional key/value pairs.
	Info(msg string, keysAndValues ...any)
	// Warn logs a message at WarnLevel with optional key/value pairs.
	Warn(msg string, keysAndValues ...any)
	// Error logs a message at ErrorLevel with optional key/value pairs.
	Error(msg string, keysAndValues ...any)
	// Fatal logs a message at FatalLevel and then calls os.Exit(1).
	Fatal(msg string, keysAndValues ...any)
	// With returns a child logger carrying the given key/value pairs.
	With(keyValues ...any) Logger
	// Level returns the minimum enabled level.
	Level() Level
	// SetLevel changes the minimum enabled level.
	SetLevel(level Level)
}
