// Package logger adapts charmbracelet/log for the core. Components receive
// a *Logger and attach their identifying fields once; the JSON formatter is
// selected for non-interactive output.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	cblog "github.com/charmbracelet/log"
)

// Options describes logger configuration supplied at creation time.
type Options struct {
	Writer        io.Writer
	Level         string
	HumanReadable bool
	Component     string
}

// Logger wraps the charmbracelet logger with component fields attached.
type Logger struct {
	base *cblog.Logger
}

// New creates a configured Logger instance based on Options.
func New(opts Options) (*Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	level := cblog.InfoLevel
	if opts.Level != "" {
		parsed, err := cblog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	cbOpts := cblog.Options{
		Level:           level,
		ReportTimestamp: true,
	}
	if !opts.HumanReadable {
		cbOpts.Formatter = cblog.JSONFormatter
	}

	base := cblog.NewWithOptions(writer, cbOpts)
	if opts.Component != "" {
		base = base.With("component", opts.Component)
	}

	return &Logger{base: base}, nil
}

// Noop returns a logger that discards everything. Used by tests and as the
// default when callers pass nil.
func Noop() *Logger {
	return &Logger{base: cblog.NewWithOptions(io.Discard, cblog.Options{Level: cblog.FatalLevel + 1})}
}

// With returns a derived logger carrying the additional key-value fields.
func (l *Logger) With(keyvals ...any) *Logger {
	if l == nil || l.base == nil {
		return l
	}
	return &Logger{base: l.base.With(keyvals...)}
}

// Debug writes a debug-level entry.
func (l *Logger) Debug(msg string, keyvals ...any) {
	if l == nil || l.base == nil {
		return
	}
	l.base.Debug(msg, keyvals...)
}

// Info writes an informational entry.
func (l *Logger) Info(msg string, keyvals ...any) {
	if l == nil || l.base == nil {
		return
	}
	l.base.Info(msg, keyvals...)
}

// Warn writes a warning entry.
func (l *Logger) Warn(msg string, keyvals ...any) {
	if l == nil || l.base == nil {
		return
	}
	l.base.Warn(msg, keyvals...)
}

// Error writes an error entry.
func (l *Logger) Error(msg string, keyvals ...any) {
	if l == nil || l.base == nil {
		return
	}
	l.base.Error(msg, keyvals...)
}
