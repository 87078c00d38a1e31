// Package logging provides the leveled, structured logger used across the server.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level is a logging severity
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Fields holds structured key/value pairs attached to a log line
type Fields map[string]interface{}

// WithField returns a single-entry Fields value
func WithField(key string, value interface{}) Fields {
	return Fields{key: value}
}

// WithFields converts a plain map into Fields
func WithFields(fields map[string]interface{}) Fields {
	return Fields(fields)
}

// Logger is a thin wrapper around zerolog that keeps the call sites short
type Logger struct {
	zl zerolog.Logger
}

// Options controls where and how log lines are written
type Options struct {
	Output io.Writer
	JSON   bool
}

// New creates a logger writing human-readable lines to stdout
func New(level Level) *Logger {
	return NewWithOptions(level, Options{})
}

// NewWithOptions creates a logger with explicit output settings
func NewWithOptions(level Level, opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if !opts.JSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: opts.Output != nil}
	}

	zl := zerolog.New(out).Level(level.zerolog()).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// ParseLevel converts a level name into a Level. Unknown names map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// With returns a child logger that always carries the given fields
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{zl: l.zl.With().Fields(map[string]interface{}(fields)).Logger()}
}

// Component returns a child logger tagged with a component name
func (l *Logger) Component(name string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", name).Logger()}
}

func (l *Logger) Debug(msg string, fields ...Fields) {
	l.log(l.zl.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...Fields) {
	l.log(l.zl.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...Fields) {
	l.log(l.zl.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...Fields) {
	l.log(l.zl.Error(), msg, fields)
}

func (l *Logger) log(event *zerolog.Event, msg string, fields []Fields) {
	if event == nil {
		return
	}
	for _, f := range fields {
		for k, v := range f {
			if err, ok := v.(error); ok {
				event = event.AnErr(k, err)
				continue
			}
			event = event.Interface(k, v)
		}
	}
	event.Msg(msg)
}
