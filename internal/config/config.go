// Package config loads editor settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the settings file looked up in the user config directory.
const FileName = "cartograph.yaml"

// Config holds the editor settings.
type Config struct {
	Minimap   SizeSpec `yaml:"minimap"`
	Canvas    SizeSpec `yaml:"canvas"`
	Zoom      ZoomSpec `yaml:"zoom"`
	Resampler string   `yaml:"resampler"`

	// TempDir is where imported images are staged. Empty means the OS default.
	TempDir string `yaml:"temp_dir"`
}

// SizeSpec is a viewport size in pixels.
type SizeSpec struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// ZoomSpec bounds the zoom level.
type ZoomSpec struct {
	MaxLevel int `yaml:"max_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Minimap:   SizeSpec{Width: 400, Height: 400},
		Canvas:    SizeSpec{Width: 1024, Height: 768},
		Zoom:      ZoomSpec{MaxLevel: 16},
		Resampler: "bilinear",
	}
}

// Path returns the default location of the settings file.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: locate config dir: %w", err)
	}
	return filepath.Join(dir, "cartograph", FileName), nil
}

// Load reads the settings at path over the defaults. A missing file yields
// the defaults without error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: load %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory if needed.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings the editor cannot work with.
func (c Config) Validate() error {
	if c.Minimap.Width <= 0 || c.Minimap.Height <= 0 {
		return fmt.Errorf("minimap size %dx%d must be positive", c.Minimap.Width, c.Minimap.Height)
	}
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("canvas size %dx%d must be positive", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Zoom.MaxLevel < 0 {
		return fmt.Errorf("zoom max_level %d is negative", c.Zoom.MaxLevel)
	}
	switch c.Resampler {
	case "nearest", "bilinear", "catmullrom", "opencv":
	default:
		return fmt.Errorf("unknown resampler %q", c.Resampler)
	}
	return nil
}
