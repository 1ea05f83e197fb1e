// Package logger provides structured file logging for desgate.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

const (
	// LogFilePermissions restricts log files to the owner.
	LogFilePermissions = 0o600

	logDirPermissions = 0o700
)

// Logger provides structured logging.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, keysAndValues ...any)

	// With returns a logger that adds keysAndValues to every entry.
	With(keysAndValues ...any) Logger
}

// SlogAdapter implements Logger on top of log/slog with the LineHandler.
// Hook runs never log to stdout: the host reads the protocol response there.
type SlogAdapter struct {
	logger  *slog.Logger
	handler *LineHandler
}

// NewFileLogger appends to the file at filePath, creating the parent
// directory if needed. Lines carry the process id.
func NewFileLogger(filePath string, debugMode, traceMode bool) (*SlogAdapter, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), logDirPermissions); err != nil {
		return nil, errors.Wrap(err, "failed to create log directory")
	}

	//nolint:gosec // path comes from config, defaults under the user's home
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermissions)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open log file")
	}

	handler := NewLineHandler(file, LevelFromFlags(debugMode, traceMode), os.Getpid())

	return &SlogAdapter{logger: slog.New(handler), handler: handler}, nil
}

// NewFileLoggerWithWriter creates a logger writing to w without a pid field.
func NewFileLoggerWithWriter(w io.Writer, debugMode, traceMode bool) *SlogAdapter {
	handler := NewLineHandler(w, LevelFromFlags(debugMode, traceMode), 0)

	return &SlogAdapter{logger: slog.New(handler), handler: handler}
}

// Debug logs at debug level.
func (l *SlogAdapter) Debug(msg string, keysAndValues ...any) {
	l.logger.Log(context.Background(), slog.LevelDebug, msg, keysAndValues...)
}

// Info logs at info level.
func (l *SlogAdapter) Info(msg string, keysAndValues ...any) {
	l.logger.Log(context.Background(), slog.LevelInfo, msg, keysAndValues...)
}

// Error logs at error level.
func (l *SlogAdapter) Error(msg string, keysAndValues ...any) {
	l.logger.Log(context.Background(), slog.LevelError, msg, keysAndValues...)
}

// With returns a child logger sharing the same file.
//
//nolint:ireturn // chaining through the interface
func (l *SlogAdapter) With(keysAndValues ...any) Logger {
	return &SlogAdapter{logger: l.logger.With(keysAndValues...), handler: l.handler}
}

// Close closes the underlying file, if any.
func (l *SlogAdapter) Close() error {
	return l.handler.Close()
}

// NoOpLogger discards everything.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// Debug does nothing.
func (*NoOpLogger) Debug(string, ...any) {}

// Info does nothing.
func (*NoOpLogger) Info(string, ...any) {}

// Error does nothing.
func (*NoOpLogger) Error(string, ...any) {}

// With returns the receiver.
//
//nolint:ireturn // chaining through the interface
func (l *NoOpLogger) With(...any) Logger {
	return l
}
