package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPredictURL is where the prediction service listens unless told
// otherwise
const DefaultPredictURL = "http://127.0.0.1:5000"

// Config holds the application configuration
type Config struct {
	Port    int           `yaml:"port"`
	Env     string        `yaml:"env"`
	Version string        `yaml:"-"`
	Predict PredictConfig `yaml:"predict"`
	Log     LogConfig     `yaml:"log"`
	Session SessionConfig `yaml:"session"`
}

// PredictConfig locates the prediction service
type PredictConfig struct {
	URL string `yaml:"url"`
	// Timeout of zero leaves the request bounded only by the transport
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig controls the application logger
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// SessionConfig controls how long idle browser forms are kept
type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Port:    8080,
		Env:     "development",
		Version: "dev",
		Predict: PredictConfig{URL: DefaultPredictURL},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Session: SessionConfig{TTL: 2 * time.Hour},
	}
}

// LoadSettings overlays the YAML file at path onto base. A missing file is
// not an error.
func LoadSettings(path string, base Config) (Config, error) {
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return base, nil
	}
	if err != nil {
		return base, fmt.Errorf("failed to read settings: %w", err)
	}

	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays BOSTON_* environment variables onto cfg
func ApplyEnv(cfg Config) Config {
	cfg.Predict.URL = getEnv("BOSTON_PREDICT_URL", cfg.Predict.URL)
	cfg.Log.Level = getEnv("BOSTON_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("BOSTON_LOG_FILE", cfg.Log.File)
	cfg.Env = getEnv("BOSTON_ENV", cfg.Env)
	if port, err := strconv.Atoi(os.Getenv("BOSTON_PORT")); err == nil && port > 0 {
		cfg.Port = port
	}
	return cfg
}

// Load builds the configuration from defaults, the settings file and the
// environment, in that order
func Load(path string) (Config, error) {
	cfg, err := LoadSettings(path, Default())
	if err != nil {
		return cfg, err
	}
	return ApplyEnv(cfg), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
