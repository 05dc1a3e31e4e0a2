package logger

import (
	"io"
	"log/slog"
	"os"
)

// Logger takes a message followed by alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

var LoggerEnabled = true

type DefaultLogger struct {
	name string
	log  *slog.Logger
}

// NewDefaultLogger logs text records to stderr at debug level and above.
func NewDefaultLogger(name string) *DefaultLogger {
	return NewWithWriter(name, os.Stderr, slog.LevelDebug)
}

// NewWithWriter is NewDefaultLogger with an explicit sink and level.
func NewWithWriter(name string, w io.Writer, level slog.Level) *DefaultLogger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return &DefaultLogger{
		name: name,
		log:  slog.New(h).With("component", name),
	}
}

func (d *DefaultLogger) Debug(msg string, args ...any) {
	if LoggerEnabled {
		d.log.Debug(msg, args...)
	}
}

func (d *DefaultLogger) Info(msg string, args ...any) {
	if LoggerEnabled {
		d.log.Info(msg, args...)
	}
}

func (d *DefaultLogger) Error(msg string, args ...any) {
	if LoggerEnabled {
		d.log.Error(msg, args...)
	}
}

type nop struct{}

func (nop) Debug(string, ...any) {}
func (nop) Info(string, ...any)  {}
func (nop) Error(string, ...any) {}

// Nop discards everything.
func Nop() Logger {
	return nop{}
}
