package fetch

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/nikbrunner/bm/internal/model"
	"github.com/nikbrunner/bm/internal/thumbnail"
)

// Prefetch requests thumbnails for items through cache, at most limit at a
// time, and returns how many resolved. Individual failures are not errors;
// only ctx ending stops the batch early.
func Prefetch(ctx context.Context, cache *thumbnail.Cache, items []model.Item, limit int) (int, error) {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	var resolved atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if _, err := cache.Request(item).Wait(gctx); err == nil {
				resolved.Add(1)
			}
			return nil
		})
	}

	_ = g.Wait()
	return int(resolved.Load()), ctx.Err()
}
