// Package config loads questctl settings from .questlog/config.yaml with
// QUESTLOG_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/questlog/internal/infrastructure/logging"
	"github.com/felixgeelhaar/questlog/pkg/storage"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config holds workspace settings. Environment variables win over the file.
type Config struct {
	SaveBackend  string        `yaml:"save_backend" env:"QUESTLOG_SAVE_BACKEND"`
	Slot         string        `yaml:"slot" env:"QUESTLOG_SLOT"`
	Locale       string        `yaml:"locale" env:"QUESTLOG_LOCALE"`
	PinFocus     bool          `yaml:"pin_focus" env:"QUESTLOG_PIN_FOCUS"`
	ReadyTimeout time.Duration `yaml:"ready_timeout" env:"QUESTLOG_READY_TIMEOUT"`
	Log          LogConfig     `yaml:"log"`
}

type LogConfig struct {
	Level      logging.Level  `yaml:"level" env:"QUESTLOG_LOG_LEVEL"`
	Format     logging.Format `yaml:"format" env:"QUESTLOG_LOG_FORMAT"`
	Categories []string       `yaml:"categories,omitempty" env:"QUESTLOG_LOG_CATEGORIES" envSeparator:","`
}

// Options converts the log settings for logging.New.
func (c LogConfig) Options() logging.Options {
	return logging.Options{Level: c.Level, Format: c.Format, Categories: c.Categories}
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		SaveBackend:  BackendFile,
		Slot:         "main",
		Locale:       "en-US",
		ReadyTimeout: 5 * time.Second,
		Log: LogConfig{
			Level:  logging.LevelInfo,
			Format: logging.FormatText,
		},
	}
}

// Load reads root/.questlog/config.yaml over Default, then applies
// environment overrides. A missing file is not an error.
func Load(root string) (*Config, error) {
	cfg := Default()

	repo := storage.NewFilesystemRepository(root)
	path, err := repo.ResolvePath(storage.ConfigFile)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- Path is resolved and validated via ResolvePath
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to root/.questlog/config.yaml.
func Save(root string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return storage.NewFilesystemRepository(root).WriteFile(storage.ConfigFile, data)
}

// Validate checks every setting.
func (c *Config) Validate() error {
	switch c.SaveBackend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("unknown save backend %q (want %q or %q)", c.SaveBackend, BackendFile, BackendSQLite)
	}
	if err := storage.ValidateSlot(c.Slot); err != nil {
		return err
	}
	if c.Locale == "" {
		return fmt.Errorf("locale cannot be empty")
	}
	if c.ReadyTimeout <= 0 {
		return fmt.Errorf("ready timeout must be positive, got %s", c.ReadyTimeout)
	}
	if !c.Log.Level.Valid() {
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
