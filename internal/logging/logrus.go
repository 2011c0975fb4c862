package logging

import (
	log "github.com/sirupsen/logrus"
)

// Logrus adapts a logrus logger to the Logger interface.
type Logrus struct {
	entry *log.Entry
}

// NewLogrus wraps l. A nil l uses the logrus standard logger.
func NewLogrus(l *log.Logger) *Logrus {
	if l == nil {
		l = log.StandardLogger()
	}
	return &Logrus{entry: log.NewEntry(l)}
}

// SetLevel changes the minimum level of the underlying logrus logger.
func (l *Logrus) SetLevel(level Level) {
	l.entry.Logger.SetLevel(toLogrus(level))
}

func (l *Logrus) Debug(msg string, fields Fields) {
	l.entry.WithFields(log.Fields(fields)).Debug(msg)
}

func (l *Logrus) Info(msg string, fields Fields) {
	l.entry.WithFields(log.Fields(fields)).Info(msg)
}

func (l *Logrus) Warn(msg string, fields Fields) {
	l.entry.WithFields(log.Fields(fields)).Warn(msg)
}

func (l *Logrus) Error(msg string, fields Fields) {
	l.entry.WithFields(log.Fields(fields)).Error(msg)
}

func toLogrus(level Level) log.Level {
	switch level {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
