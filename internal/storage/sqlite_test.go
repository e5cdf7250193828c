package storage_test

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nikbrunner/bm/internal/exporter"
	"github.com/nikbrunner/bm/internal/importer"
	"github.com/nikbrunner/bm/internal/model"
	"github.com/nikbrunner/bm/internal/storage"
)

func TestSQLiteStorage_SaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "bookmarks.db")

	s, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer s.Close()

	now := time.Now().Truncate(time.Second) // SQLite RFC3339 loses sub-second precision

	items := []model.Item{
		{
			ID:        "b1",
			Title:     "Test",
			URL:       "https://example.com",
			Tags:      []string{"test", "example"},
			CreatedAt: now,
		},
	}

	if err := s.Save(items); err != nil {
		t.Fatalf("failed to save: %v", err)
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
	if len(loaded[0].Tags) != 2 {
		t.Errorf("expected 2 tags, got %d", len(loaded[0].Tags))
	}
	if !loaded[0].CreatedAt.Equal(now) {
		t.Errorf("expected CreatedAt %v, got %v", now, loaded[0].CreatedAt)
	}
}

func TestSQLiteStorage_EmptyDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "empty.db")

	s, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer s.Close()

	items, err := s.Load()
	if err != nil {
		t.Fatalf("failed to load empty db: %v", err)
	}

	if len(items) != 0 {
		t.Error("expected no items")
	}

	version, err := s.SchemaVersion()
	if err != nil {
		t.Fatalf("failed to read schema version: %v", err)
	}
	if version != 1 {
		t.Errorf("expected schema version 1, got %d", version)
	}
}

func TestSQLiteStorage_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")

	s, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	if err := s.Save([]model.Item{{ID: "1", URL: "https://a.example"}}); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	s.Close()

	s2, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen storage: %v", err)
	}
	defer s2.Close()

	items, err := s2.Load()
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if len(items) != 1 || items[0].ID != "1" {
		t.Errorf("expected item 1 after reopen, got %+v", items)
	}
}

func TestSQLiteStorage_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "dir", "bookmarks.db")

	s, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("failed to create storage with nested dir: %v", err)
	}
	defer s.Close()

	if err := s.Save([]model.Item{}); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
}

func TestSQLiteStorage_NilTags(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nullable.db")

	s, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer s.Close()

	if err := s.Save([]model.Item{{ID: "b1", URL: "https://example.com", Tags: nil}}); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if loaded[0].Tags == nil {
		t.Error("expected tags to be empty slice, not nil")
	}
}

func TestSQLiteStorage_SaveReplaces(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "replace.db")

	s, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer s.Close()

	if err := s.Save([]model.Item{{ID: "1", Title: "Original"}}); err != nil {
		t.Fatalf("failed to save initial: %v", err)
	}
	if err := s.Save([]model.Item{{ID: "2", Title: "Updated"}}); err != nil {
		t.Fatalf("failed to save updated: %v", err)
	}

	loaded, _ := s.Load()
	if len(loaded) != 1 || loaded[0].Title != "Updated" {
		t.Error("update did not work correctly")
	}
}

func TestSQLiteStorage_PreservesOrder(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "order.db")

	s, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer s.Close()

	items := []model.Item{{ID: "z"}, {ID: "a"}, {ID: "m"}}
	if err := s.Save(items); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	for i, want := range []string{"z", "a", "m"} {
		if loaded[i].ID != want {
			t.Errorf("order not preserved: expected %q at position %d, got %q", want, i, loaded[i].ID)
		}
	}
}

// Integration test for import/export with SQLite storage

func TestSQLiteStorage_ImportExportRoundtrip(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "roundtrip.db")

	s, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer s.Close()

	now := time.Now().Truncate(time.Second)
	original := []model.Item{
		{ID: "b1", Title: "TanStack", URL: "https://tanstack.com", Tags: []string{"react", "router"}, CreatedAt: now},
		{ID: "b2", Title: "GitHub", URL: "https://github.com", Tags: []string{"git"}, CreatedAt: now},
	}

	if err := s.Save(original); err != nil {
		t.Fatalf("failed to save original: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	html := exporter.ExportHTML(loaded)

	imported, err := importer.ParseHTMLBookmarks(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse exported HTML: %v", err)
	}

	store := model.NewStore()
	store.Merge(imported)

	dbPath2 := filepath.Join(tmpDir, "roundtrip2.db")
	s2, err := storage.NewSQLiteStorage(dbPath2)
	if err != nil {
		t.Fatalf("failed to create second storage: %v", err)
	}
	defer s2.Close()

	if err := s2.Save(store.Items()); err != nil {
		t.Fatalf("failed to save imported: %v", err)
	}

	reloaded, err := s2.Load()
	if err != nil {
		t.Fatalf("failed to reload: %v", err)
	}

	if len(reloaded) != len(original) {
		t.Fatalf("item count mismatch: expected %d, got %d", len(original), len(reloaded))
	}
	for i := range original {
		if reloaded[i].URL != original[i].URL || reloaded[i].Title != original[i].Title {
			t.Errorf("item %d mismatch: got %+v, want %+v", i, reloaded[i], original[i])
		}
		if strings.Join(reloaded[i].Tags, ",") != strings.Join(original[i].Tags, ",") {
			t.Errorf("item %d tags = %v, want %v", i, reloaded[i].Tags, original[i].Tags)
		}
		if !reloaded[i].CreatedAt.Equal(original[i].CreatedAt) {
			t.Errorf("item %d created = %v, want %v", i, reloaded[i].CreatedAt, original[i].CreatedAt)
		}
	}
}
