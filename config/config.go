// Package config handles loading and validating previewhl's YAML config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cptaffe/previewhl/styled"
)

// Defaults for keys left unset (zero) in the file.
const (
	DefaultMaxMemoryEntries  = 20
	DefaultMaxMemoryBytes    = 10 << 20
	DefaultMaxDiskBytes      = 100 << 20
	DefaultMaxDiskFiles      = 500
	DefaultFallbackTimeoutMS = 2000
	DefaultCleanupEvery      = 10
	DefaultCleanupInterval   = 30 * time.Second
	DefaultTheme             = "default"
)

// Config is the top-level structure of the config file.
type Config struct {
	// Memory cache budget.
	MaxMemoryEntries int   `yaml:"max_memory_entries"`
	MaxMemoryBytes   int64 `yaml:"max_memory_bytes"`

	// Disk cache budget and location.  An empty CacheDir means the user
	// cache directory.
	MaxDiskBytes     int64         `yaml:"max_disk_bytes"`
	MaxDiskFiles     int           `yaml:"max_disk_files"`
	CacheDir         string        `yaml:"cache_dir"`
	CleanupEvery     int           `yaml:"cleanup_every"`
	CleanupInterval  time.Duration `yaml:"cleanup_interval"`
	DisableDiskCache bool          `yaml:"disable_disk_cache"`

	// FallbackTimeoutMS bounds each fallback highlighter call.
	FallbackTimeoutMS int `yaml:"fallback_timeout_ms"`

	// PositionUnit is "rune", "utf16" or "byte".
	PositionUnit string `yaml:"position_unit"`

	// Theme selects the palette; Themes defines extra palettes as
	// theme id -> role name -> color ("#rrggbb" or a color name).
	Theme  string                       `yaml:"theme"`
	Themes map[string]map[string]string `yaml:"themes"`

	// FilenameHandlers maps filename patterns to language IDs.  Evaluated
	// in order; first match wins.  Patterns are Go regular expressions.
	FilenameHandlers []FilenameHandler `yaml:"filename_handlers"`
}

// FilenameHandler associates a filename regex pattern with a language ID.
type FilenameHandler struct {
	Pattern    string `yaml:"pattern"`
	LanguageID string `yaml:"language_id"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.MaxMemoryEntries == 0 {
		c.MaxMemoryEntries = DefaultMaxMemoryEntries
	}
	if c.MaxMemoryBytes == 0 {
		c.MaxMemoryBytes = DefaultMaxMemoryBytes
	}
	if c.MaxDiskBytes == 0 {
		c.MaxDiskBytes = DefaultMaxDiskBytes
	}
	if c.MaxDiskFiles == 0 {
		c.MaxDiskFiles = DefaultMaxDiskFiles
	}
	if c.FallbackTimeoutMS == 0 {
		c.FallbackTimeoutMS = DefaultFallbackTimeoutMS
	}
	if c.CleanupEvery == 0 {
		c.CleanupEvery = DefaultCleanupEvery
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	if c.Theme == "" {
		c.Theme = DefaultTheme
	}
	if c.PositionUnit == "" {
		c.PositionUnit = styled.UnitRune.String()
	}
	if c.CacheDir == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			c.CacheDir = filepath.Join(dir, "previewhl")
		} else {
			c.CacheDir = filepath.Join(os.TempDir(), "previewhl-cache")
		}
	}
}

// Load reads path, fills unset keys with defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Validate rejects negative budgets, unknown units and handler patterns that
// do not compile.  All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	positive := []struct {
		key string
		v   int64
	}{
		{"max_memory_entries", int64(c.MaxMemoryEntries)},
		{"max_memory_bytes", c.MaxMemoryBytes},
		{"max_disk_bytes", c.MaxDiskBytes},
		{"max_disk_files", int64(c.MaxDiskFiles)},
		{"fallback_timeout_ms", int64(c.FallbackTimeoutMS)},
		{"cleanup_every", int64(c.CleanupEvery)},
		{"cleanup_interval", int64(c.CleanupInterval)},
	}
	for _, p := range positive {
		if p.v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %d", p.key, p.v))
		}
	}
	if _, err := c.Unit(); err != nil {
		errs = append(errs, fmt.Errorf("position_unit: %w", err))
	}
	for i, h := range c.FilenameHandlers {
		if h.LanguageID == "" {
			errs = append(errs, fmt.Errorf("filename_handlers[%d]: language_id is empty", i))
		}
		if _, err := regexp.Compile(h.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("filename_handlers[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Unit returns the parsed PositionUnit.
func (c *Config) Unit() (styled.Unit, error) {
	return styled.ParseUnit(c.PositionUnit)
}

// FallbackTimeout returns FallbackTimeoutMS as a duration.
func (c *Config) FallbackTimeout() time.Duration {
	return time.Duration(c.FallbackTimeoutMS) * time.Millisecond
}
