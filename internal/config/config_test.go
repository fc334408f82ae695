package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

func TestLoadSettingsMissingFile(t *testing.T) {
	cfg, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yaml"), Default())
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Expected defaults (-want +got):\n%s", diff)
	}
}

func TestLoadSettingsOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := `
port: 9090
predict:
  url: http://predictor:5000
  timeout: 5s
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadSettings(path, Default())
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	want := Default()
	want.Port = 9090
	want.Predict.URL = "http://predictor:5000"
	want.Predict.Timeout = 5 * time.Second
	want.Log.Level = "debug"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Unexpected config (-want +got):\n%s", diff)
	}
}

func TestLoadSettingsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	os.WriteFile(path, []byte("port: [not a number"), 0644)

	if _, err := LoadSettings(path, Default()); err == nil {
		t.Error("Expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("BOSTON_PREDICT_URL", "http://10.0.0.5:5000")
	t.Setenv("BOSTON_PORT", "7000")
	t.Setenv("BOSTON_LOG_LEVEL", "warn")

	cfg := ApplyEnv(Default())
	if cfg.Predict.URL != "http://10.0.0.5:5000" {
		t.Errorf("Expected env predict url, got %s", cfg.Predict.URL)
	}
	if cfg.Port != 7000 {
		t.Errorf("Expected port 7000, got %d", cfg.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Expected level warn, got %s", cfg.Log.Level)
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(path, []byte("predict:\n  url: http://a:5000\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, zap.NewNop(), func(c Config) { changes <- c })
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("predict:\n  url: http://b:5000\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.Predict.URL == "http://b:5000" {
				cancel()
				if err := <-done; err != nil {
					t.Errorf("Watch returned %v", err)
				}
				return
			}
		case <-deadline:
			t.Fatal("Timed out waiting for reload")
		}
	}
}
