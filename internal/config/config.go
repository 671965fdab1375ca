// Package config loads the optional appsweep configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/tw93/appsweep/internal/cache"
	"github.com/tw93/appsweep/internal/tuner"
)

// Config holds the appsweep configuration. Every field is optional; zero
// values fall back to built-in defaults.
type Config struct {
	// CacheTTLSeconds bounds how old a cached scan may be before a rescan.
	CacheTTLSeconds int64 `toml:"cache_ttl_seconds"`
	// Roots replaces the default scan roots when non-empty.
	Roots []string `toml:"roots"`
	// Protected lists extra bundle identifiers (or prefixes ending in ".")
	// that are never shown as removal candidates.
	Protected []string `toml:"protected"`
	// Workers overrides the enrichment pool size. Clamped to the same
	// bounds as the automatic setting.
	Workers int `toml:"workers"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		CacheTTLSeconds: cache.DefaultTTLSeconds,
		Workers:         tuner.PoolSize(),
	}
}

func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "appsweep", "config.toml"), nil
}

// Load reads the config file, if any. A missing file is not an error; a
// present but unparseable file is.
func Load() (Config, error) {
	path, err := configPath()
	if err != nil {
		return Default(), nil
	}
	return loadFile(path)
}

func loadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.CacheTTLSeconds <= 0 {
		cfg.CacheTTLSeconds = cache.DefaultTTLSeconds
	}
	cfg.Workers = tuner.Clamp(cfg.Workers)

	for i, root := range cfg.Roots {
		expanded, err := expandPath(root)
		if err != nil {
			return Default(), fmt.Errorf("expand roots[%d]: %w", i, err)
		}
		if !filepath.IsAbs(expanded) {
			return Default(), fmt.Errorf("roots[%d] must be absolute or start with ~, got %q", i, root)
		}
		cfg.Roots[i] = expanded
	}

	return cfg, nil
}

// expandPath expands a leading ~ because shells do not expand inside config
// files.
func expandPath(path string) (string, error) {
	if path == "~" {
		return os.UserHomeDir()
	}
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
