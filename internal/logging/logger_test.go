package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStandardLogger_Basic(t *testing.T) {
	logger := NewStandardLogger("info", "development")

	assert.NotNil(t, logger)
	assert.NotNil(t, logger.Logger())
}

func TestStandardLogger_LogLevels(t *testing.T) {
	tests := []struct {
		levelStr string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"invalid", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.levelStr, func(t *testing.T) {
			assert.Equal(t, tt.expected, getZapLevel(tt.levelStr))
		})
	}
}

func setupTestLogger() (*StandardLogger, *observer.ObservedLogs) {
	core, observedLogs := observer.New(zap.InfoLevel)
	return &StandardLogger{logger: zap.New(core)}, observedLogs
}

func TestStandardLogger_WithComponent(t *testing.T) {
	logger, logs := setupTestLogger()

	logger.WithComponent("database").Info("test message")

	assert.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "test message", entry.Message)
	assert.Equal(t, "database", entry.ContextMap()["component"])
}

func TestStandardLogger_WithOperation(t *testing.T) {
	logger, logs := setupTestLogger()

	logger.WithOperation("issue_code").Info("test message")

	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "issue_code", logs.All()[0].ContextMap()["operation"])
}

func TestStandardLogger_WithService(t *testing.T) {
	logger, logs := setupTestLogger()

	logger.WithService("auth").Info("test message")

	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "auth", logs.All()[0].ContextMap()["service"])
}
