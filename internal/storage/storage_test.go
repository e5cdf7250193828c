package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nikbrunner/bm/internal/model"
	"github.com/nikbrunner/bm/internal/storage"
)

func TestJSONStorage_SaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bookmarks.json")

	items := []model.Item{
		{ID: "b1", Title: "Test", URL: "https://example.com", Tags: []string{"x"}},
	}

	s := storage.NewJSONStorage(configPath)
	if err := s.Save(items); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("data file was not created")
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	if len(loaded) != 1 {
		t.Fatalf("expected 1 item, got %d", len(loaded))
	}
	if loaded[0].Title != "Test" {
		t.Errorf("expected title 'Test', got %q", loaded[0].Title)
	}
	if len(loaded[0].Tags) != 1 || loaded[0].Tags[0] != "x" {
		t.Errorf("expected tags [x], got %v", loaded[0].Tags)
	}
}

func TestJSONStorage_LoadNonexistent(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nonexistent.json")

	s := storage.NewJSONStorage(configPath)
	items, err := s.Load()

	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Error("expected empty, non-nil items for missing file")
	}
}

func TestJSONStorage_NilTagsBecomeEmpty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bookmarks.json")
	if err := os.WriteFile(configPath, []byte(`{"items":[{"id":"1","url":"https://a.example"}]}`), 0644); err != nil {
		t.Fatal(err)
	}

	items, err := storage.NewJSONStorage(configPath).Load()
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if items[0].Tags == nil {
		t.Error("expected tags to be empty slice, not nil")
	}
}

func TestJSONStorage_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "dir", "bookmarks.json")

	s := storage.NewJSONStorage(configPath)
	if err := s.Save(nil); err != nil {
		t.Fatalf("failed to save with nested dir: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("data file was not created in nested directory")
	}
}

func TestJSONStorage_PreservesOrder(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bookmarks.json")

	items := []model.Item{
		{ID: "1", Title: "First"},
		{ID: "2", Title: "Second"},
		{ID: "3", Title: "Third"},
	}

	s := storage.NewJSONStorage(configPath)
	if err := s.Save(items); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	expectedTitles := []string{"First", "Second", "Third"}
	for i, title := range expectedTitles {
		if loaded[i].Title != title {
			t.Errorf("order not preserved: expected %q at position %d, got %q",
				title, i, loaded[i].Title)
		}
	}
}

func TestJSONStorage_CorruptFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bookmarks.json")
	if err := os.WriteFile(configPath, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := storage.NewJSONStorage(configPath).Load(); err == nil {
		t.Error("expected error for corrupt file")
	}
}
