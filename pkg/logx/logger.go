// Package logx provides structured logging for the plantwise daemon
package logx

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger provides structured JSON logging with key-value pairs
type Logger struct {
	entry *logrus.Entry
}

// New creates a new structured logger at the given level
func New(levelStr string) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "ts",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "msg",
		},
	})
	l.SetLevel(parseLevel(levelStr))
	return &Logger{entry: logrus.NewEntry(l)}
}

// parseLevel converts a level string to a logrus level
func parseLevel(levelStr string) logrus.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// With returns a logger with the given fields attached to every entry
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{entry: l.entry.WithFields(toFields(keysAndValues))}
}

// toFields converts alternating key-value pairs into logrus fields
func toFields(keysAndValues []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key := fmt.Sprintf("%v", keysAndValues[i])
		fields[key] = keysAndValues[i+1]
	}
	return fields
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(toFields(keysAndValues)).Debug(msg)
}

// Info logs an info message
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(toFields(keysAndValues)).Info(msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(toFields(keysAndValues)).Warn(msg)
}

// Error logs an error message
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(toFields(keysAndValues)).Error(msg)
}
