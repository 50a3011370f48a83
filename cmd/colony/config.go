// ABOUTME: config.go provides configuration file management for the colony CLI.
// ABOUTME: Supports loading and saving with COLONY_* environment variable overrides.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zettawatt/colony/cmd/internal/appcli"
)

// Config represents the colony CLI configuration. It holds no secrets.
type Config struct {
	Keystore    string `json:"keystore"`
	MetaDB      string `json:"meta_db"`
	KDFMemoryMB uint32 `json:"kdf_memory_mb,omitempty"`
	KDFTime     uint32 `json:"kdf_time,omitempty"`
	KDFThreads  uint8  `json:"kdf_threads,omitempty"`
	LogLevel    string `json:"log_level,omitempty"`
}

// ConfigPath returns the path to the colony config file.
// It can be overridden in tests.
var ConfigPath = func() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".colony", "config.json")
	}
	return filepath.Join(home, ".colony", "config.json")
}

// ConfigDir returns the directory containing the config file.
func ConfigDir() string {
	return filepath.Dir(ConfigPath())
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir := ConfigDir()
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return fmt.Errorf("config path %s is a file, not a directory", dir)
	case !os.IsNotExist(err):
		return fmt.Errorf("check config dir: %w", err)
	}
	return os.MkdirAll(dir, 0o700)
}

// LoadConfig loads config from file and applies environment variable overrides.
// A missing file yields the defaults.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()
	configPath := ConfigPath()

	info, statErr := os.Stat(configPath)
	if statErr == nil && info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory, not a file", configPath)
	}

	// #nosec G304 -- configPath is derived from user's home directory, not user input
	data, err := os.ReadFile(configPath)
	if err == nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			backup := configPath + ".corrupt." + time.Now().Format("20060102-150405")
			if renameErr := os.Rename(configPath, backup); renameErr == nil {
				fmt.Fprintf(os.Stderr, "Warning: corrupted config backed up to %s\n", backup)
			}
			return nil, fmt.Errorf("config file corrupted: %w", jsonErr)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	cfg.Keystore = expandPath(cfg.Keystore)
	cfg.MetaDB = expandPath(cfg.MetaDB)
	if cfg.Keystore == "" {
		cfg.Keystore = filepath.Join(ConfigDir(), "keystore")
	}
	if cfg.MetaDB == "" {
		cfg.MetaDB = filepath.Join(ConfigDir(), "meta.db")
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Keystore: filepath.Join(ConfigDir(), "keystore"),
		MetaDB:   filepath.Join(ConfigDir(), "meta.db"),
		LogLevel: "warning",
	}
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("COLONY_KEYSTORE"); v != "" {
		cfg.Keystore = v
	}
	if v := os.Getenv("COLONY_META_DB"); v != "" {
		cfg.MetaDB = v
	}
	if v := os.Getenv("COLONY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("COLONY_KDF_MEMORY_MB"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("COLONY_KDF_MEMORY_MB: %w", err)
		}
		cfg.KDFMemoryMB = uint32(n)
	}
	if v := os.Getenv("COLONY_KDF_TIME"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("COLONY_KDF_TIME: %w", err)
		}
		cfg.KDFTime = uint32(n)
	}
	if v := os.Getenv("COLONY_KDF_THREADS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return fmt.Errorf("COLONY_KDF_THREADS: %w", err)
		}
		cfg.KDFThreads = uint8(n)
	}
	return nil
}

// SaveConfig writes config to file.
func SaveConfig(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(ConfigPath(), data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ConfigExists returns true if config file exists.
func ConfigExists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// Runtime converts the file config into appcli flag defaults.
func (c *Config) Runtime() appcli.RuntimeConfig {
	return appcli.RuntimeConfig{
		KeystorePath: c.Keystore,
		MetaDBPath:   c.MetaDB,
		KDFMemoryMB:  c.KDFMemoryMB,
		KDFTime:      c.KDFTime,
		KDFThreads:   c.KDFThreads,
	}
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
