package fetch

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"image"
	"image/png"

	"github.com/golang/glog"
	"github.com/peterbourgon/diskv/v3"

	"github.com/nikbrunner/bm/internal/model"
	"github.com/nikbrunner/bm/internal/thumbnail"
)

// DiskCache persists thumbnails across sessions, keyed by item identifier
// and URL so an item whose URL changes is fetched again. Hits are decoded
// from disk; misses go to the wrapped Fetcher and are written back as PNG.
type DiskCache struct {
	d    *diskv.Diskv
	next thumbnail.Fetcher
}

// NewDiskCache stores thumbnails under dir and fetches misses from next.
func NewDiskCache(dir string, next thumbnail.Fetcher) *DiskCache {
	return &DiskCache{
		d: diskv.New(diskv.Options{
			BasePath:     dir,
			Transform:    shardTransform,
			CacheSizeMax: 4 << 20,
		}),
		next: next,
	}
}

// Fetch implements thumbnail.Fetcher.
func (c *DiskCache) Fetch(ctx context.Context, item model.Item) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, thumbnail.Classify(err)
	}

	key := diskKey(item)
	if data, err := c.d.Read(key); err == nil {
		img, err := png.Decode(bytes.NewReader(data))
		if err == nil {
			return img, nil
		}
		glog.Warningf("[disk]corrupt thumbnail %s = %s\n", item.ID, err)
		_ = c.d.Erase(key)
	}

	img, err := c.next.Fetch(ctx, item)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		glog.Warningf("[disk]encode %s = %s\n", item.ID, err)
		return img, nil
	}
	if err := c.d.Write(key, buf.Bytes()); err != nil {
		glog.Warningf("[disk]write %s = %s\n", item.ID, err)
	}
	return img, nil
}

// Has reports whether a thumbnail for item is on disk.
func (c *DiskCache) Has(item model.Item) bool {
	return c.d.Has(diskKey(item))
}

// Forget removes the stored thumbnail for item.
func (c *DiskCache) Forget(item model.Item) error {
	key := diskKey(item)
	if !c.d.Has(key) {
		return nil
	}
	return c.d.Erase(key)
}

// diskKey maps an item's identifier and URL onto a filename-safe key.
func diskKey(item model.Item) string {
	sum := sha1.Sum([]byte(item.ID + "\x00" + item.URL))
	return hex.EncodeToString(sum[:])
}

// shardTransform spreads keys over two directory levels.
func shardTransform(key string) []string {
	if len(key) < 4 {
		return []string{}
	}
	return []string{key[0:2], key[2:4]}
}
