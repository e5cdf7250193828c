package storage_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nikbrunner/bm/internal/storage"
)

func TestLoadConfig_CreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bm", "config.json")

	cfg, err := storage.LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	defaults := storage.DefaultConfig()
	if cfg.ThumbnailCacheSize != defaults.ThumbnailCacheSize {
		t.Errorf("ThumbnailCacheSize = %d, want %d", cfg.ThumbnailCacheSize, defaults.ThumbnailCacheSize)
	}
	if !cfg.ShouldPersistThumbnails() {
		t.Error("expected thumbnails to persist by default")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected config file to be written: %v", err)
	}
}

func TestLoadConfig_BackfillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"thumbnailCacheSize": 12, "persistThumbnails": false}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := storage.LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.ThumbnailCacheSize != 12 {
		t.Errorf("ThumbnailCacheSize = %d, want 12", cfg.ThumbnailCacheSize)
	}
	if cfg.ShouldPersistThumbnails() {
		t.Error("expected explicit persistThumbnails=false to be kept")
	}
	if cfg.FetchConcurrency != 4 {
		t.Errorf("FetchConcurrency = %d, want 4", cfg.FetchConcurrency)
	}
	if cfg.FetchTimeout() != 15*time.Second {
		t.Errorf("FetchTimeout() = %v, want 15s", cfg.FetchTimeout())
	}
	if cfg.ThumbnailDir == "" {
		t.Error("expected default thumbnail dir")
	}
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("nope"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := storage.LoadConfig(path); err == nil {
		t.Error("expected error for invalid config")
	}
}
