// Package logging provides the structured zap logger used across the service.
package logging

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// StandardLogger wraps a zap logger with the field conventions the service
// uses everywhere (service, component, operation).
type StandardLogger struct {
	logger *zap.Logger
}

var (
	defaultLogger *StandardLogger
	defaultOnce   sync.Once
)

// NewStandardLogger builds a JSON logger at the given level. In development
// the encoder switches to the human-readable console format.
func NewStandardLogger(level, environment string) *StandardLogger {
	atomicLevel := zap.NewAtomicLevelAt(getZapLevel(level))

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if environment == "development" {
		devCfg := zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(devCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), atomicLevel)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return &StandardLogger{logger: logger}
}

// Default returns the process-wide logger, creating it lazily at info level.
func Default() *StandardLogger {
	defaultOnce.Do(func() {
		if defaultLogger == nil {
			defaultLogger = NewStandardLogger("info", "production")
		}
	})
	return defaultLogger
}

// SetDefault replaces the process-wide logger. Call early in main, before any
// component grabs Default.
func SetDefault(l *StandardLogger) {
	defaultLogger = l
	defaultOnce.Do(func() {})
}

// Logger exposes the underlying zap logger for libraries that want it raw.
func (s *StandardLogger) Logger() *zap.Logger {
	return s.logger
}

// WithService returns a logger tagged with the service name.
func (s *StandardLogger) WithService(service string) *zap.Logger {
	return s.logger.With(zap.String("service", service))
}

// WithComponent returns a logger tagged with a component name.
func (s *StandardLogger) WithComponent(component string) *zap.Logger {
	return s.logger.With(zap.String("component", component))
}

// WithOperation returns a logger tagged with an operation name.
func (s *StandardLogger) WithOperation(operation string) *zap.Logger {
	return s.logger.With(zap.String("operation", operation))
}

// Sync flushes buffered log entries.
func (s *StandardLogger) Sync() error {
	return s.logger.Sync()
}

func getZapLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
