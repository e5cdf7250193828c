package thumbnail

import (
	"context"
	"image"
	"sync"
)

// Handle is one subscriber's view of a thumbnail request. It settles exactly
// once with an image, a fetch failure, or ErrCancelled.
type Handle struct {
	id    string
	cache *Cache
	entry *entry // guarded by cache.mu

	once sync.Once
	done chan struct{}
	img  image.Image
	err  error
}

func newHandle(c *Cache, id string) *Handle {
	return &Handle{id: id, cache: c, done: make(chan struct{})}
}

// ID returns the item identifier this handle was requested for.
func (h *Handle) ID() string {
	return h.id
}

// Done is closed once the handle has settled.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result blocks until the handle settles and returns its outcome.
func (h *Handle) Result() (image.Image, error) {
	<-h.done
	return h.img, h.err
}

// Wait is Result bounded by ctx. If ctx ends first the handle is cancelled.
func (h *Handle) Wait(ctx context.Context) (image.Image, error) {
	select {
	case <-h.done:
		return h.img, h.err
	case <-ctx.Done():
		h.Cancel()
		return h.Result()
	}
}

// Cancel stops deliveries to this subscriber. The shared fetch keeps running
// while other subscribers wait. Cancelling a settled handle is a no-op.
func (h *Handle) Cancel() {
	if !h.settle(nil, ErrCancelled) {
		return
	}
	h.cache.unsubscribe(h)
}

// settle records the outcome if none has been recorded yet.
func (h *Handle) settle(img image.Image, err error) bool {
	settled := false
	h.once.Do(func() {
		h.img = img
		h.err = err
		settled = true
		close(h.done)
	})
	return settled
}
