// Package log provides the structured logging interface used by bgnn.
//
// The interface is slog-compatible so callers can plug in their own backend; the
// default backend is zerolog (see zerolog.go). Components obtain a named logger with
// GetLoggerWithName and attach the standard attribute keys from attributes.go:
//
//	logger := log.GetLoggerWithName("bgnn").With(log.EstimatorIDKey, runID)
//	logger.Info("Epoch finished",
//	    log.EpochKey, 3,
//	    log.LossKey, 0.42,
//	)

package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. Error accepts an error value as its first
// field; it is logged under the "error" key together with its stack trace.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	//
	//   logger.Error("Fit failed",
	//       err,
	//       log.OperationKey, log.OperationFit,
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates loggers. Tests swap the global provider with
// SetProvider(NewTestLoggerProvider(...)).
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger with a component name attached.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum level for loggers created by this provider.
	SetLevel(level Level)
}
