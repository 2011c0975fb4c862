package logging

import (
	"maps"
	"strings"
)

// Fields carries the structured key/value pairs attached to a log event.
type Fields map[string]any

// Level is the severity of a log event.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the upper-case name of l.
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

// ParseLevel maps a case-insensitive level name onto a Level. Unknown names map
// to LevelInfo and ok is false.
func ParseLevel(name string) (level Level, ok bool) {
	switch strings.ToLower(name) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// Logger is the sink through which the pool and its workers emit events. Where
// the events end up is up to the implementation.
type Logger interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, fields Fields)
}

// With returns a Logger that adds fields to every event before passing it to l.
// Fields given at the call site win over fields given here.
func With(l Logger, fields Fields) Logger {
	if inner, ok := l.(*withLogger); ok {
		return &withLogger{next: inner.next, fields: inner.merge(fields)}
	}
	return &withLogger{next: l, fields: (&withLogger{}).merge(fields)}
}

type withLogger struct {
	next   Logger
	fields Fields
}

func (w *withLogger) merge(fields Fields) Fields {
	out := make(Fields, len(w.fields)+len(fields))
	maps.Copy(out, w.fields)
	maps.Copy(out, fields)
	return out
}

func (w *withLogger) Debug(msg string, fields Fields) { w.next.Debug(msg, w.merge(fields)) }
func (w *withLogger) Info(msg string, fields Fields)  { w.next.Info(msg, w.merge(fields)) }
func (w *withLogger) Warn(msg string, fields Fields)  { w.next.Warn(msg, w.merge(fields)) }
func (w *withLogger) Error(msg string, fields Fields) { w.next.Error(msg, w.merge(fields)) }

// Nop returns a Logger that discards every event.
func Nop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string, Fields) {}
func (nopLogger) Info(string, Fields)  {}
func (nopLogger) Warn(string, Fields)  {}
func (nopLogger) Error(string, Fields) {}
