package logger

import (
	"context"
	"strings"

	"github.com/phuslu/log"
)

// LogLevel defines the logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
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

// ParseLevel converts a string level to LogLevel.
func ParseLevel(levelStr string) LogLevel {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo // Default to Info
	}
}

// phusluLevel maps a LogLevel onto the underlying library's level type.
func (l LogLevel) phusluLevel() log.Level {
	switch l {
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

// StructuredLogger implements the ports.Logger interface using phuslu/log.
type StructuredLogger struct {
	logger log.Logger
}

// NewStructuredLogger creates a new structured logger writing to stderr.
func NewStructuredLogger(level LogLevel) *StructuredLogger {
	return &StructuredLogger{
		logger: log.Logger{
			Level:      level.phusluLevel(),
			TimeFormat: "2006-01-02 15:04:05.000",
			Writer: &log.ConsoleWriter{
				QuoteString:    true,
				EndWithMessage: true,
			},
		},
	}
}

// emit attaches the optional error and field map to the entry and flushes it.
func (l *StructuredLogger) emit(e *log.Entry, err error, msg string, fields ...map[string]interface{}) {
	if err != nil {
		e = e.Err(err)
	}
	if len(fields) > 0 && fields[0] != nil {
		for k, v := range fields[0] {
			e = e.Interface(k, v)
		}
	}
	e.Msg(msg)
}

// Debug logs a message at Debug level.
func (l *StructuredLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.emit(l.logger.Debug(), nil, msg, fields...)
}

// Info logs a message at Info level.
func (l *StructuredLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.emit(l.logger.Info(), nil, msg, fields...)
}

// Warn logs a message at Warning level.
func (l *StructuredLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.emit(l.logger.Warn(), nil, msg, fields...)
}

// Error logs an error message at Error level.
func (l *StructuredLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	l.emit(l.logger.Error(), err, msg, fields...)
}
