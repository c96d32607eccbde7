// Package config reads and writes the user-level defaults file that points
// the catalog at its archive.
//
//	base_dir: /home/me/epr-archive
//	log_level: info
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/specatalog/internal/catalogerr"
)

// EnvPath overrides the location of the defaults file.
const EnvPath = "SPECATALOG_CONFIG"

// Config is the content of the defaults file.
type Config struct {
	BaseDir  string `yaml:"base_dir"`
	LogLevel string `yaml:"log_level,omitempty"`
}

// DefaultPath returns $SPECATALOG_CONFIG or ~/.specatalog/defaults.yaml.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".specatalog", "defaults.yaml"), nil
}

// Load reads and validates the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, catalogerr.Configuration("", "no defaults file at %s; run `specatalog init --base-dir DIR`", path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Config{}, catalogerr.Configuration("", "%s: %v", path, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Save writes c to path, creating the parent directory.
func Save(path string, c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks that base_dir is absolute and log_level is known.
func (c Config) Validate() error {
	if c.BaseDir == "" {
		return catalogerr.Configuration("", "base_dir is required")
	}
	if !filepath.IsAbs(c.BaseDir) {
		return catalogerr.Configuration("", "base_dir %q must be an absolute path", c.BaseDir)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel. Empty means info.
func (c Config) Level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, catalogerr.Configuration("", "unknown log_level %q (want debug, info, warn or error)", c.LogLevel)
	}
}
