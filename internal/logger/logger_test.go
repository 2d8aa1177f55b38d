package logger_test

import (
	"testing"

	"github.com/mbg-dapur/api/internal/logger"
	"go.uber.org/zap/zapcore"
)

func TestNew_Level(t *testing.T) {
	l, err := logger.New(logger.Config{Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("error should be enabled at warn level")
	}
}

func TestNew_Console(t *testing.T) {
	l, err := logger.New(logger.Config{Format: "console"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("development config should enable debug by default")
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := logger.New(logger.Config{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
