package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"
)

const appName = "leptosls"

type Formatter struct {
	Command   string   `json:"command"`
	Args      []string `json:"args"`
	TimeoutMs int      `json:"timeout_ms"`
}

type Cache struct {
	Enabled              bool   `json:"enabled"`
	Path                 string `json:"path"` // empty: $XDG_STATE_HOME/leptosls/format-cache.db
	TTLHours             int    `json:"ttl_hours"`
	PruneIntervalMinutes int    `json:"prune_interval_minutes"`
}

type Config struct {
	Formatter         Formatter `json:"formatter"`
	Macros            []string  `json:"macros"`
	MaxParallelFormat int       `json:"max_parallel_format"`
	Cache             Cache     `json:"cache"`
}

var defaultConfig = Config{
	Formatter: Formatter{
		Command:   "leptosfmt",
		Args:      []string{"--stdin"},
		TimeoutMs: 5000,
	},
	Macros:            []string{"view"},
	MaxParallelFormat: 4,
	Cache: Cache{
		Enabled:              true,
		TTLHours:             168,
		PruneIntervalMinutes: 60,
	},
}

// Default returns the built-in configuration.
func Default() Config {
	return defaultConfig.clone()
}

func (c Config) clone() Config {
	c.Formatter.Args = slices.Clone(c.Formatter.Args)
	c.Macros = slices.Clone(c.Macros)
	return c
}

// Load overlays v, typically the client's initializationOptions, on the
// defaults.
func Load(v any) (Config, error) {
	return Overlay(defaultConfig, v)
}

// Overlay returns base with the fields present in v replaced. v is anything
// that marshals to a JSON object; nil leaves base unchanged.
func Overlay(base Config, v any) (Config, error) {
	cfg := base.clone()
	if v == nil {
		return cfg, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return Config{}, fmt.Errorf("failed to marshal source: %w", err)
	}

	// only fields present in src will overwrite.
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal into Config: %w", err)
	}

	return cfg, cfg.Validate()
}

// LoadFromJSON reads JSON from r over the defaults.
func LoadFromJSON(r io.Reader) (Config, error) {
	cfg := Default()

	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

// LoadFile reads the JSON file at path over the defaults.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	cfg, err := LoadFromJSON(f)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Formatter.Command == "" {
		errs = append(errs, errors.New("formatter.command must not be empty"))
	}
	if c.Formatter.TimeoutMs <= 0 {
		errs = append(errs, errors.New("formatter.timeout_ms must be positive"))
	}
	if len(c.Macros) == 0 {
		errs = append(errs, errors.New("macros must not be empty"))
	}
	if c.MaxParallelFormat <= 0 {
		errs = append(errs, errors.New("max_parallel_format must be positive"))
	}
	if c.Cache.Enabled && c.Cache.TTLHours <= 0 {
		errs = append(errs, errors.New("cache.ttl_hours must be positive"))
	}
	if c.Cache.Enabled && c.Cache.PruneIntervalMinutes <= 0 {
		errs = append(errs, errors.New("cache.prune_interval_minutes must be positive"))
	}
	return errors.Join(errs...)
}

func (c Config) FormatTimeout() time.Duration {
	return time.Duration(c.Formatter.TimeoutMs) * time.Millisecond
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

func (c Config) PruneInterval() time.Duration {
	return time.Duration(c.Cache.PruneIntervalMinutes) * time.Minute
}

// CachePath returns the configured cache database path, defaulting to a
// file in the XDG state directory.
func (c Config) CachePath() (string, error) {
	if c.Cache.Path != "" {
		return c.Cache.Path, nil
	}
	dir, err := getXDGStateHome(appName)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "format-cache.db"), nil
}

func getXDGStateHome(appName string) (string, error) {
	xdgStateHome := os.Getenv("XDG_STATE_HOME")
	if xdgStateHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		xdgStateHome = filepath.Join(homeDir, ".local", "state")
	}

	appStateDir := filepath.Join(xdgStateHome, appName)

	if err := os.MkdirAll(appStateDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}

	return appStateDir, nil
}
