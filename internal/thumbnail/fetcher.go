package thumbnail

import (
	"context"
	"image"

	"github.com/nikbrunner/bm/internal/model"
)

// Fetcher retrieves and decodes the thumbnail for an item. It must return
// promptly with ctx.Err() (or an error wrapping ErrAborted) once ctx is done.
type Fetcher interface {
	Fetch(ctx context.Context, item model.Item) (image.Image, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, item model.Item) (image.Image, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, item model.Item) (image.Image, error) {
	return f(ctx, item)
}
