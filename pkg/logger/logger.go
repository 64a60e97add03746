// Package logger provides structured logging for the Hearth services.
// It wraps zerolog behind a small fluent API so services can attach
// contextual fields without caring about the backend.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Level mirrors zerolog levels for callers that configure verbosity.
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
)

// Logger emits structured log records tagged with a component name.
type Logger struct {
	mu        sync.RWMutex
	zl        zerolog.Logger
	component string
	fields    map[string]any
}

// NewDefault creates a logger for the named component writing to stderr
// at Info level.
func NewDefault(component string) *Logger {
	return New(component, os.Stderr, InfoLevel)
}

// New creates a logger with an explicit sink and level.
func New(component string, w io.Writer, level Level) *Logger {
	zl := zerolog.New(w).Level(level).With().
		Timestamp().
		Str("component", component).
		Logger()
	return &Logger{zl: zl, component: component}
}

// SetOutput redirects the logger's sink. Mainly used by tests and examples.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl = l.zl.Output(w)
}

// SetLevel adjusts the minimum emitted level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl = l.zl.Level(level)
}

// WithField returns a child logger carrying the extra field.
func (l *Logger) WithField(key string, value any) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	fields := make(map[string]any, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value
	return &Logger{zl: l.zl, component: l.component, fields: fields}
}

// WithError returns a child logger carrying the error as a field.
func (l *Logger) WithError(err error) *Logger {
	return l.WithField("error", err)
}

func (l *Logger) emit(ev *zerolog.Event, msg string) {
	for k, v := range l.fields {
		if err, ok := v.(error); ok {
			ev = ev.AnErr(k, err)
			continue
		}
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.emit(l.zl.Debug(), msg)
}

// Info logs at info level.
func (l *Logger) Info(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.emit(l.zl.Info(), msg)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.emit(l.zl.Warn(), msg)
}

// Error logs at error level.
func (l *Logger) Error(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.emit(l.zl.Error(), msg)
}
