// Package logger provides structured logging for the meeting recorder.
// It supports multiple log levels, output formats, and contextual information.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus to provide structured logging
type Logger struct {
	*logrus.Logger
	fields logrus.Fields
}

// Config holds logger configuration
type Config struct {
	Level      string
	Format     string
	OutputFile string
	Output     io.Writer
}

// New creates a new logger instance with the given configuration
func New(cfg Config) (*Logger, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
			FullTimestamp:   true,
		})
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	writers := []io.Writer{out}

	if cfg.OutputFile != "" {
		logDir := filepath.Dir(cfg.OutputFile)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, err
		}

		file, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		writers = append(writers, file)
	}

	log.SetOutput(io.MultiWriter(writers...))

	return &Logger{
		Logger: log,
		fields: make(logrus.Fields),
	}, nil
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Logger{Logger: log, fields: make(logrus.Fields)}
}

// WithField returns a new logger with the given field added
func (l *Logger) WithField(key string, value interface{}) *Logger {
	newFields := make(logrus.Fields)
	for k, v := range l.fields {
		newFields[k] = v
	}
	newFields[key] = value

	return &Logger{
		Logger: l.Logger,
		fields: newFields,
	}
}

// WithFields returns a new logger with multiple fields added
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	newFields := make(logrus.Fields)
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &Logger{
		Logger: l.Logger,
		fields: newFields,
	}
}

// WithModule returns a new logger with the module field set
func (l *Logger) WithModule(module string) *Logger {
	return l.WithField("module", module)
}

// WithSession returns a new logger tagged with a session ID
func (l *Logger) WithSession(id string) *Logger {
	return l.WithField("session_id", id)
}

// Debug logs a debug message with context fields
func (l *Logger) Debug(msg string) {
	l.Logger.WithFields(l.fields).Debug(msg)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.Logger.WithFields(l.fields).Debugf(format, args...)
}

// Info logs an info message with context fields
func (l *Logger) Info(msg string) {
	l.Logger.WithFields(l.fields).Info(msg)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Logger.WithFields(l.fields).Infof(format, args...)
}

// Warn logs a warning message with context fields
func (l *Logger) Warn(msg string) {
	l.Logger.WithFields(l.fields).Warn(msg)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.Logger.WithFields(l.fields).Warnf(format, args...)
}

// Error logs an error message with context fields
func (l *Logger) Error(msg string) {
	l.Logger.WithFields(l.fields).Error(msg)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Logger.WithFields(l.fields).Errorf(format, args...)
}

// WithError returns a new logger with error field added
func (l *Logger) WithError(err error) *Logger {
	return l.WithField("error", err.Error())
}

// StealthAction logs a pacing action with details
func (l *Logger) StealthAction(action string, details map[string]interface{}) {
	fields := make(map[string]interface{})
	fields["stealth_action"] = action
	for k, v := range details {
		fields[k] = v
	}
	l.WithFields(fields).Debug("Stealth action performed")
}

// BrowserAction logs a browser action
func (l *Logger) BrowserAction(action string, url string) {
	l.WithFields(map[string]interface{}{
		"browser_action": action,
		"url":            url,
	}).Info("Browser action")
}

// SessionEvent logs a step of the session lifecycle
func (l *Logger) SessionEvent(step string, ok bool) {
	entry := l.WithFields(map[string]interface{}{
		"step": step,
		"ok":   ok,
	})
	if ok {
		entry.Info("Session step")
	} else {
		entry.Warn("Session step")
	}
}

// LocatorAttempt logs the outcome of one candidate locator
func (l *Logger) LocatorAttempt(control string, locator string, found bool) {
	l.WithFields(map[string]interface{}{
		"control": control,
		"locator": locator,
		"found":   found,
	}).Debug("Locator attempt")
}

// Artifact logs a written recording artifact
func (l *Logger) Artifact(path string, size int64, duration time.Duration) {
	l.WithFields(map[string]interface{}{
		"path":       path,
		"size_bytes": size,
		"duration":   duration.Round(time.Millisecond).String(),
	}).Info("Recording saved")
}
