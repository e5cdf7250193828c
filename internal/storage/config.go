package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Config holds application configuration.
type Config struct {
	ThumbnailCacheSize  int    `json:"thumbnailCacheSize"`
	ThumbnailSize       int    `json:"thumbnailSize"`
	FetchConcurrency    int    `json:"fetchConcurrency"`
	FetchTimeoutSeconds int    `json:"fetchTimeoutSeconds"`
	PersistThumbnails   *bool  `json:"persistThumbnails"`
	ThumbnailDir        string `json:"thumbnailDir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	persist := true
	return Config{
		ThumbnailCacheSize:  256,
		ThumbnailSize:       160,
		FetchConcurrency:    4,
		FetchTimeoutSeconds: 15,
		PersistThumbnails:   &persist,
		ThumbnailDir:        defaultThumbnailDir(),
	}
}

// FetchTimeout returns the per-fetch timeout as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// ShouldPersistThumbnails reports whether thumbnails are kept on disk.
func (c Config) ShouldPersistThumbnails() bool {
	return c.PersistThumbnails == nil || *c.PersistThumbnails
}

// LoadConfig reads config from the JSON file.
// Creates the file with defaults if it doesn't exist.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			config := DefaultConfig()
			// Non-fatal: return defaults even if save fails
			_ = SaveConfig(path, &config)
			return &config, nil
		}
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	// Apply defaults for missing fields
	defaults := DefaultConfig()
	if config.ThumbnailCacheSize <= 0 {
		config.ThumbnailCacheSize = defaults.ThumbnailCacheSize
	}
	if config.ThumbnailSize <= 0 {
		config.ThumbnailSize = defaults.ThumbnailSize
	}
	if config.FetchConcurrency <= 0 {
		config.FetchConcurrency = defaults.FetchConcurrency
	}
	if config.FetchTimeoutSeconds <= 0 {
		config.FetchTimeoutSeconds = defaults.FetchTimeoutSeconds
	}
	if config.PersistThumbnails == nil {
		config.PersistThumbnails = defaults.PersistThumbnails
	}
	if config.ThumbnailDir == "" {
		config.ThumbnailDir = defaults.ThumbnailDir
	}

	return &config, nil
}

// SaveConfig writes config to the JSON file.
// Creates the directory if it doesn't exist.
func SaveConfig(path string, config *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfigFilePath returns the default config path: ~/.config/bm/config.json
func DefaultConfigFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "bm", "config.json"), nil
}

// defaultThumbnailDir returns ~/.cache/bm/thumbnails, or a relative
// fallback when the home directory is unknown.
func defaultThumbnailDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".bm", "thumbnails")
	}
	return filepath.Join(homeDir, ".cache", "bm", "thumbnails")
}
