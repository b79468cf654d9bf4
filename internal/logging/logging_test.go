package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"WARNING", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"unknown", zapcore.InfoLevel}, // Default
		{"", zapcore.InfoLevel},        // Default
	}

	for _, tt := range tests {
		result := ParseLogLevel(tt.input)
		if result != tt.expected {
			t.Errorf("ParseLogLevel('%s') = %v, expected %v", tt.input, result, tt.expected)
		}
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = zapcore.InfoLevel
	cfg.Output = &buf

	logger := New(cfg)
	logger.Debug("hidden")
	logger.Info("shown", zap.String("path", "/a.json"))
	_ = logger.Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug entry should be filtered")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "/a.json") {
		t.Errorf("expected info entry in output, got %q", out)
	}
	if !strings.Contains(out, "jsonedit") {
		t.Errorf("expected logger name in output, got %q", out)
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  zapcore.DebugLevel,
		Format: FormatJSON,
		Output: &buf,
		Name:   "root",
	})
	Component(logger, "store").Debug("open", zap.String("path", "/a.json"))
	_ = logger.Sync()

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "open" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["logger"] != "root.store" {
		t.Errorf("logger = %v", entry["logger"])
	}
	if entry["level"] != "DEBUG" {
		t.Errorf("level = %v", entry["level"])
	}
}

func TestComponent_NilLogger(t *testing.T) {
	if Component(nil, "x") == nil {
		t.Error("Component(nil) returned nil")
	}
}
