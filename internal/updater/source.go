package updater

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/nikbrunner/bm/internal/importer"
	"github.com/nikbrunner/bm/internal/model"
	"github.com/nikbrunner/bm/internal/storage"
)

// Source produces the full item collection for a refresh.
type Source interface {
	Load(ctx context.Context) ([]model.Item, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]model.Item, error)

// Load calls f(ctx).
func (f SourceFunc) Load(ctx context.Context) ([]model.Item, error) {
	return f(ctx)
}

// StorageSource loads items from a storage backend.
type StorageSource struct {
	Storage storage.Storage
}

// Load implements Source.
func (s StorageSource) Load(ctx context.Context) ([]model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Storage.Load()
}

// HTMLFileSource loads items from a Netscape bookmark HTML file.
// IDs are derived from the URL so they stay stable across refreshes.
type HTMLFileSource struct {
	Path string
}

// Load implements Source.
func (s HTMLFileSource) Load(ctx context.Context) ([]model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	items, err := importer.ParseHTMLBookmarks(f)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].ID = StableID(items[i].URL)
	}
	return items, nil
}

// StableID returns a name-based UUID for rawURL.
func StableID(rawURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(rawURL)).String()
}
