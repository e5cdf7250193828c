package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/nikbrunner/bm/internal/model"
)

// Storage defines the interface for persisting bookmark items.
type Storage interface {
	Load() ([]model.Item, error)
	Save(items []model.Item) error
}

// document is the on-disk JSON layout.
type document struct {
	Items []model.Item `json:"items"`
}

// JSONStorage implements Storage using a JSON file.
type JSONStorage struct {
	path string
}

// NewJSONStorage creates a new JSONStorage with the given file path.
func NewJSONStorage(path string) *JSONStorage {
	return &JSONStorage{path: path}
}

// Path returns the storage file path.
func (s *JSONStorage) Path() string {
	return s.path
}

// Load reads items from the JSON file.
// Returns no items if the file doesn't exist.
func (s *JSONStorage) Load() ([]model.Item, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Item{}, nil
		}
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	if doc.Items == nil {
		doc.Items = []model.Item{}
	}
	for i := range doc.Items {
		if doc.Items[i].Tags == nil {
			doc.Items[i].Tags = []string{}
		}
	}

	return doc.Items, nil
}

// Save writes items to the JSON file.
// Creates the directory if it doesn't exist.
func (s *JSONStorage) Save(items []model.Item) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	if items == nil {
		items = []model.Item{}
	}
	data, err := json.MarshalIndent(document{Items: items}, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0644)
}

// DefaultConfigPath returns the default data path: ~/.config/bm/bookmarks.json
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "bm", "bookmarks.json"), nil
}

// OpenStorage opens the appropriate storage backend.
// Prefers SQLite if the database file exists, otherwise falls back to JSON.
func OpenStorage() (Storage, error) {
	sqlitePath, err := DefaultSQLitePath()
	if err != nil {
		return nil, err
	}

	// If SQLite database exists, use it
	if _, err := os.Stat(sqlitePath); err == nil {
		return NewSQLiteStorage(sqlitePath)
	}

	jsonPath, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return NewJSONStorage(jsonPath), nil
}
