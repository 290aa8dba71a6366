package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLBeforeInitIsNop(t *testing.T) {
	if L() == nil {
		t.Fatal("Expected non-nil logger before Init")
	}
	L().Info("dropped")
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rescue.log")
	l, err := InitWithFileConfig("debug", DefaultFileConfig(path), false)
	if err != nil {
		t.Fatalf("InitWithFileConfig failed: %v", err)
	}
	defer InitWithFileConfig("info", FileConfig{}, false)

	if L() != l {
		t.Error("Expected global logger to be replaced")
	}
	Named("test").Debug("route planned", zap.String("agent", "ambulance-1"))
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), `"agent":"ambulance-1"`) {
		t.Errorf("Expected structured field in log file, got %s", data)
	}
	if !strings.Contains(string(data), `"logger":"test"`) {
		t.Errorf("Expected logger name in log file, got %s", data)
	}
}
