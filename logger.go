package stomp

import (
	"log/slog"

	"github.com/rs/zerolog"
)

// Logger is the interface for structured logging.
// It is designed to be compatible with *slog.Logger from the standard library.
// Applications can provide their own implementation, use the default slog logger,
// or wrap a zerolog logger with NewZerologLogger.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, args ...any)
	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, args ...any)
	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, args ...any)
	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, args ...any)
}

// defaultLogger returns the default slog logger from the standard library.
func defaultLogger() Logger {
	return slog.Default()
}

// zerologLogger adapts a zerolog.Logger to Logger.
type zerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger returns a Logger that writes through logger.
// Key-value pairs are attached as event fields.
func NewZerologLogger(logger zerolog.Logger) Logger {
	return &zerologLogger{logger: logger}
}

func (l *zerologLogger) Debug(msg string, args ...any) {
	l.log(l.logger.Debug(), msg, args)
}

func (l *zerologLogger) Info(msg string, args ...any) {
	l.log(l.logger.Info(), msg, args)
}

func (l *zerologLogger) Warn(msg string, args ...any) {
	l.log(l.logger.Warn(), msg, args)
}

func (l *zerologLogger) Error(msg string, args ...any) {
	l.log(l.logger.Error(), msg, args)
}

func (l *zerologLogger) log(event *zerolog.Event, msg string, args []any) {
	// event is nil when the level is disabled
	if event == nil {
		return
	}
	if len(args) > 0 {
		event = event.Fields(args)
	}
	event.Msg(msg)
}
