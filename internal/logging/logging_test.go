package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kartoza/boston-price/internal/config"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "loud"}, "development"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := New(config.LogConfig{Level: "info", File: path, MaxSizeMB: 1}, "production")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("prediction served")
	logger.Debug("hidden")
	logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Log file not written: %v", err)
	}
	if !strings.Contains(string(data), "prediction served") {
		t.Errorf("Expected entry in log file, got %q", data)
	}
	if strings.Contains(string(data), "hidden") {
		t.Error("Debug entry written at info level")
	}
}
