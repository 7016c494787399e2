// Package config collects every tunable the updater needs into one value
// built at startup: defaults, then an optional TOML file, then PYPIUP_*
// environment variables. Components receive the value explicitly; there are
// no process-wide mutable settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Cache backend names accepted by Config.CacheBackend.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Config holds the updater's runtime settings.
type Config struct {
	// IndexURL is the package index queried for release listings,
	// without a trailing slash.
	IndexURL string `toml:"index_url"`

	// ProjectURL is the base for human-readable package pages.
	ProjectURL string `toml:"project_url"`

	// Prereleases allows pre-release versions as update candidates.
	Prereleases bool `toml:"prereleases"`

	// Target is the default semver field bound: major, minor, or patch.
	Target string `toml:"target"`

	// Workers bounds the number of packages checked concurrently.
	Workers int `toml:"workers"`

	// CacheBackend selects none, file, or redis.
	CacheBackend string `toml:"cache_backend"`

	// CacheDir is where the file backend and the default inventory live.
	CacheDir string `toml:"cache_dir"`

	// RedisAddr is the host:port for the redis backend.
	RedisAddr string `toml:"redis_addr"`

	// InventoryPath is the listing file written by inventory generation
	// and read by identifier lookup.
	InventoryPath string `toml:"inventory_path"`

	// Nixpkgs, when set, is passed to nix-env as the expression path.
	Nixpkgs string `toml:"nixpkgs"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	dir := cacheDir()
	return &Config{
		IndexURL:      "https://pypi.io/pypi",
		ProjectURL:    "https://pypi.org/project",
		Target:        "major",
		Workers:       runtime.NumCPU(),
		CacheBackend:  CacheNone,
		CacheDir:      dir,
		InventoryPath: filepath.Join(dir, "drv_names.txt"),
	}
}

// Load builds the effective configuration: defaults, overlaid with the TOML
// file at path (skipped when path is empty), overlaid with environment
// variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that would only fail later and further from
// their cause.
func (c *Config) Validate() error {
	switch c.CacheBackend {
	case CacheNone, CacheFile, CacheRedis:
	default:
		return fmt.Errorf("invalid cache_backend %q (want none, file, or redis)", c.CacheBackend)
	}
	if c.CacheBackend == CacheRedis && c.RedisAddr == "" {
		return fmt.Errorf("cache_backend redis requires redis_addr")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.IndexURL == "" || c.ProjectURL == "" {
		return fmt.Errorf("index_url and project_url must not be empty")
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PYPIUP_INDEX_URL"); v != "" {
		c.IndexURL = v
	}
	if v := os.Getenv("PYPIUP_PROJECT_URL"); v != "" {
		c.ProjectURL = v
	}
	if v := os.Getenv("PYPIUP_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv("PYPIUP_REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("PYPIUP_INVENTORY"); v != "" {
		c.InventoryPath = v
	}
}

// cacheDir resolves the tool's cache directory following the XDG convention,
// falling back to the working directory when no home is known.
func cacheDir() string {
	if base := os.Getenv("XDG_CACHE_HOME"); base != "" {
		return filepath.Join(base, "pypiup")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "pypiup")
	}
	return filepath.Join(".", "pypiup")
}
