// Package logger provides the structured logger used across the service
package logger

import (
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level represents the severity level of a log message
type Level string

const (
	// DebugLevel is used for development messages
	DebugLevel Level = "DEBUG"
	// InfoLevel is used for general operational information
	InfoLevel Level = "INFO"
	// WarnLevel is used for warnings and potential issues
	WarnLevel Level = "WARN"
	// ErrorLevel is used for errors and unexpected events
	ErrorLevel Level = "ERROR"
	// FatalLevel is used for critical errors that require termination
	FatalLevel Level = "FATAL"
)

func init() {
	zerolog.TimestampFieldName = "timestamp"
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.LevelFieldMarshalFunc = func(l zerolog.Level) string {
		return strings.ToUpper(l.String())
	}
}

// Logger defines the interface for the application logger
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Fatal(msg string, fields map[string]interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// JSONLogger is a Logger that writes one JSON object per line through zerolog
type JSONLogger struct {
	zl zerolog.Logger
}

// NewJSONLogger creates a new JSON logger. A nil output writes to stdout.
func NewJSONLogger(output io.Writer, level Level) *JSONLogger {
	if output == nil {
		output = os.Stdout
	}

	zl := zerolog.New(output).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &JSONLogger{zl: zl}
}

// ParseLevel maps a configuration string such as "debug" to a Level.
// Unknown values fall back to InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DebugLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	case "FATAL":
		return FatalLevel
	default:
		return InfoLevel
	}
}

func toZerologLevel(level Level) zerolog.Level {
	switch level {
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	case FatalLevel:
		return zerolog.FatalLevel
	default:
		return zerolog.TraceLevel
	}
}

// WithField returns a new logger with the field added to the log context
func (l *JSONLogger) WithField(key string, value interface{}) Logger {
	return &JSONLogger{zl: l.zl.With().Interface(key, value).Logger()}
}

// WithFields returns a new logger with the fields added to the log context
func (l *JSONLogger) WithFields(fields map[string]interface{}) Logger {
	if len(fields) == 0 {
		return l
	}
	return &JSONLogger{zl: l.zl.With().Fields(fields).Logger()}
}

// Debug logs a message at debug level
func (l *JSONLogger) Debug(msg string, fields map[string]interface{}) {
	l.log(l.zl.Debug(), msg, fields)
}

// Info logs a message at info level
func (l *JSONLogger) Info(msg string, fields map[string]interface{}) {
	l.log(l.zl.Info(), msg, fields)
}

// Warn logs a message at warn level
func (l *JSONLogger) Warn(msg string, fields map[string]interface{}) {
	l.log(l.zl.Warn(), msg, fields)
}

// Error logs a message at error level
func (l *JSONLogger) Error(msg string, fields map[string]interface{}) {
	l.log(l.zl.Error(), msg, fields)
}

// Fatal logs a message at fatal level and then terminates the program
func (l *JSONLogger) Fatal(msg string, fields map[string]interface{}) {
	l.log(l.zl.WithLevel(zerolog.FatalLevel), msg, fields)
	os.Exit(1)
}

// log attaches caller info and fields to an event. A nil event means the
// level is disabled.
func (l *JSONLogger) log(event *zerolog.Event, msg string, fields map[string]interface{}) {
	if event == nil {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file = "unknown"
		line = 0
	}

	event.Str("file", file).Int("line", line)
	if len(fields) > 0 {
		event.Fields(fields)
	}
	event.Msg(msg)
}

// Default logger instances
var (
	defaultLogger Logger = NewJSONLogger(os.Stdout, InfoLevel)
)

// GetDefaultLogger returns the default logger
func GetDefaultLogger() Logger {
	return defaultLogger
}

// SetDefaultLogger sets the default logger
func SetDefaultLogger(logger Logger) {
	if logger != nil {
		defaultLogger = logger
	}
}
