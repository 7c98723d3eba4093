// Package config loads the echoctl configuration from TOML files with
// .env and environment variable overlays.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads configuration from standard locations with environment overrides.
// Search order: ~/.echoctlrc, $XDG_CONFIG_HOME/echoctl/config.toml,
// ~/.config/echoctl/config.toml
func Load() (*Config, error) {
	cfg := &Config{}

	// Try loading from file
	path := findConfigFile()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// Apply defaults, then .env and environment variable overrides
	cfg.ApplyDefaults()
	_ = godotenv.Load()
	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	_ = godotenv.Load()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// findConfigFile returns the first existing config file path.
func findConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	paths := []string{
		filepath.Join(home, ".echoctlrc"),
	}

	// XDG_CONFIG_HOME or default
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	paths = append(paths, filepath.Join(xdgConfig, "echoctl", "config.toml"))

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	// Account
	if v := os.Getenv("ECHOCTL_SITE"); v != "" {
		cfg.Account.Site = v
	}
	if v := os.Getenv("ECHOCTL_SESSION_FILE"); v != "" {
		cfg.Account.SessionFile = v
	}

	// Defaults
	if v := os.Getenv("ECHOCTL_DEVICE"); v != "" {
		cfg.Defaults.Device = v
	}
	if v := os.Getenv("ECHOCTL_TTS_VOLUME"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Defaults.TTSVolume = i
		}
	}
	if v := os.Getenv("ECHOCTL_STANDARD_VOLUME"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Defaults.StandardVolume = i
		}
	}

	// Dispatch
	if v := os.Getenv("ECHOCTL_HISTORY_SIZE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Dispatch.HistorySize = i
		}
	}

	// Watch
	if v := os.Getenv("ECHOCTL_WATCH_REFRESH_INTERVAL"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Watch.RefreshInterval = i
		}
	}

	// Log
	if v := os.Getenv("ECHOCTL_VERBOSE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.Verbose = b
		}
	}
	if v := os.Getenv("ECHOCTL_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}
