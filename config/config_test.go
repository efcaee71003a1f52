package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cptaffe/previewhl/styled"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	if c.MaxMemoryEntries != 20 || c.MaxMemoryBytes != 10<<20 {
		t.Errorf("memory budget = %d/%d", c.MaxMemoryEntries, c.MaxMemoryBytes)
	}
	if c.MaxDiskBytes != 100<<20 || c.MaxDiskFiles != 500 {
		t.Errorf("disk budget = %d/%d", c.MaxDiskBytes, c.MaxDiskFiles)
	}
	if c.FallbackTimeout() != 2*time.Second {
		t.Errorf("FallbackTimeout() = %v", c.FallbackTimeout())
	}
	if c.CleanupEvery != 10 || c.CleanupInterval != 30*time.Second {
		t.Errorf("cleanup = %d/%v", c.CleanupEvery, c.CleanupInterval)
	}
	if c.Theme != "default" || c.CacheDir == "" {
		t.Errorf("theme %q, cache dir %q", c.Theme, c.CacheDir)
	}
	if u, err := c.Unit(); err != nil || u != styled.UnitRune {
		t.Errorf("Unit() = %v, %v", u, err)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
max_memory_entries: 5
cache_dir: /tmp/hl
cleanup_interval: 1m30s
position_unit: utf16
theme: mine
themes:
  mine:
    keyword: "#ff0000"
    comment: teal
filename_handlers:
  - pattern: '\.mk$'
    language_id: bash
  - pattern: 'Dockerfile'
    language_id: docker
`)
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.MaxMemoryEntries != 5 {
		t.Errorf("MaxMemoryEntries = %d", c.MaxMemoryEntries)
	}
	if c.MaxMemoryBytes != DefaultMaxMemoryBytes {
		t.Errorf("unset MaxMemoryBytes = %d, want default", c.MaxMemoryBytes)
	}
	if c.CacheDir != "/tmp/hl" {
		t.Errorf("CacheDir = %q", c.CacheDir)
	}
	if c.CleanupInterval != 90*time.Second {
		t.Errorf("CleanupInterval = %v", c.CleanupInterval)
	}
	if u, _ := c.Unit(); u != styled.UnitUTF16 {
		t.Errorf("Unit() = %v", u)
	}
	if c.Themes["mine"]["comment"] != "teal" {
		t.Errorf("Themes = %v", c.Themes)
	}
	if len(c.FilenameHandlers) != 2 || c.FilenameHandlers[1].LanguageID != "docker" {
		t.Errorf("FilenameHandlers = %+v", c.FilenameHandlers)
	}
}

func TestLoadInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"negative budget", "max_disk_files: -1", "max_disk_files"},
		{"bad unit", "position_unit: furlongs", "position_unit"},
		{"bad pattern", "filename_handlers:\n  - pattern: '('\n    language_id: c", "filename_handlers[0]"},
		{"missing language", "filename_handlers:\n  - pattern: 'x'", "language_id is empty"},
		{"bad yaml", "max_memory_entries: [", "parse"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, c.body))
			if err == nil || !strings.Contains(err.Error(), c.want) {
				t.Errorf("Load err = %v, want mention of %q", err, c.want)
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); !os.IsNotExist(err) {
		t.Errorf("err = %v, want not-exist", err)
	}
}
