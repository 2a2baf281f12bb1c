// Package config loads and validates the TOML configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// EnvConfigPath overrides the default config file location when set.
const EnvConfigPath = "RAGESYNC_CONFIG_PATH"

// Config holds every setting the tool reads at startup. Invalid or
// missing required fields abort the run before any network call.
type Config struct {
	// Server is the base URL of the archive server, without a trailing slash.
	Server   string `toml:"server" validate:"required,url"`
	Username string `toml:"username" validate:"required"`
	Password string `toml:"password" validate:"required"`

	// Threads caps the number of in-flight requests in every sync phase.
	Threads int `toml:"threads" validate:"required,gt=0"`

	// SyncDir overrides the default local mirror location.
	SyncDir string `toml:"sync-dir" validate:"omitempty,dirpath"`

	// OSHeuristics enables inferring an entry's OS from characteristic
	// file names before falling back to a detail-file fetch.
	OSHeuristics bool `toml:"os-heuristics"`

	// CacheDetails downloads the detail file of filtered-out entries so
	// later runs can decide offline.
	CacheDetails bool `toml:"cache-details"`

	// SyncRetryLimit bounds the retry loop around a sync. Zero means
	// retry forever; absent means no retries at all.
	SyncRetryLimit *int `toml:"sync-retry-limit"`

	// SyncSinceLastDay turns the newest locally synced day into an
	// "after" bound for the next sync.
	SyncSinceLastDay bool `toml:"sync-since-last-day"`

	// Default filter for the sync subcommand. CLI flags override these
	// individually.
	SyncOS     string `toml:"sync-os"`
	SyncBefore string `toml:"sync-before"`
	SyncAfter  string `toml:"sync-after"`
	SyncWhen   string `toml:"sync-when"`
	SyncUser   string `toml:"sync-user"`
	SyncAny    bool   `toml:"sync-any"`
	SyncUnsure bool   `toml:"sync-unsure"`

	LogLevel string `toml:"log-level" validate:"omitempty,oneof=trace debug info warn error"`
	LogFile  string `toml:"log-file"`
}

// Load reads the config file at path, or at the default location when
// path is empty, and validates it.
func Load(path string) (*Config, error) {
	resolved, err := configPath(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.DecodeFile(resolved, &cfg); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no config file at %s; see the README for the fields to include", resolved)
		}
		return nil, fmt.Errorf("config file %s is not valid TOML: %w", resolved, err)
	}

	cfg.Server = strings.TrimRight(cfg.Server, "/")

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// configPath resolves the config file location: explicit path, then the
// environment override, then the per-user config directory.
func configPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine config directory: %w", err)
	}
	return filepath.Join(dir, "ragesync.toml"), nil
}

// MirrorDir returns the local sync directory, defaulting to a per-user
// data location when not configured.
func (c *Config) MirrorDir() (string, error) {
	if c.SyncDir != "" {
		return c.SyncDir, nil
	}

	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("could not determine cache directory: %w", err)
	}
	return filepath.Join(dir, "ragesync"), nil
}

// RetryLimit normalizes SyncRetryLimit for the retry loop: -1 when the
// key is absent (no retries), 0 for unlimited, otherwise the bound.
func (c *Config) RetryLimit() int {
	if c.SyncRetryLimit == nil {
		return -1
	}
	return *c.SyncRetryLimit
}
