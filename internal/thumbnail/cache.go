package thumbnail

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"image"
	"slices"
	"sync"

	"github.com/golang/glog"

	"github.com/nikbrunner/bm/internal/model"
)

// DefaultCapacity is the resolved-entry limit used when none is configured.
const DefaultCapacity = 256

// State is the cache state of one item identifier.
type State int

const (
	Absent   State = iota // never fetched, failed, aborted or evicted
	InFlight              // a fetch is running with at least one subscriber
	Resolved              // image cached
)

func (s State) String() string {
	switch s {
	case InFlight:
		return "in-flight"
	case Resolved:
		return "resolved"
	default:
		return "absent"
	}
}

// An aborted entry stays in the table as Absent until its fetch returns,
// so a new request for the same id waits on done instead of overlapping it.
type entry struct {
	id     string
	state  State
	image  image.Image
	subs   []*Handle // in request order; in-flight only
	cancel context.CancelFunc
	elem   *list.Element // LRU position; resolved only
	done   chan struct{} // closed when the fetch goroutine returns
}

// CacheParams holds parameters for creating a new Cache.
type CacheParams struct {
	Fetcher  Fetcher
	Capacity int // maximum resolved entries; DefaultCapacity if <= 0
}

// Cache maps item identifiers to thumbnails. Concurrent requests for the
// same identifier share one fetch, and that fetch is aborted only when its
// last subscriber cancels. At most one fetch per identifier runs at a time:
// a request arriving while an aborted fetch winds down starts only after it
// returns. Resolved entries are evicted least recently
// used first; in-flight entries are never evicted.
type Cache struct {
	fetcher  Fetcher
	capacity int

	mu      sync.Mutex
	entries map[string]*entry
	lru     *list.List // front = most recently used
	closed  bool

	wg sync.WaitGroup
}

// NewCache creates an empty Cache.
func NewCache(params CacheParams) *Cache {
	capacity := params.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		fetcher:  params.Fetcher,
		capacity: capacity,
		entries:  make(map[string]*entry),
		lru:      list.New(),
	}
}

// Capacity returns the maximum number of resolved entries.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Request subscribes to the thumbnail for item. A resolved entry is
// delivered immediately; otherwise the caller joins the running fetch or
// starts a new one.
func (c *Cache) Request(item model.Item) *Handle {
	h := newHandle(c, item.ID)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		h.settle(nil, fmt.Errorf("%w: cache closed", ErrAborted))
		return h
	}

	var prev <-chan struct{}
	if e, ok := c.entries[item.ID]; ok {
		switch e.state {
		case Resolved:
			c.lru.MoveToFront(e.elem)
			img := e.image
			c.mu.Unlock()
			h.settle(img, nil)
			return h
		case InFlight:
			h.entry = e
			e.subs = append(e.subs, h)
			n := len(e.subs)
			c.mu.Unlock()
			glog.V(2).Infof("[thumb]join %s subscribers = %d\n", item.ID, n)
			return h
		default:
			prev = e.done
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{
		id:     item.ID,
		state:  InFlight,
		subs:   []*Handle{h},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	h.entry = e
	c.entries[item.ID] = e
	c.wg.Add(1)
	c.mu.Unlock()

	if prev != nil {
		glog.V(2).Infof("[thumb]queue %s behind aborted fetch\n", item.ID)
	}
	glog.V(1).Infof("[thumb]fetch %s %s\n", item.ID, item.URL)
	go c.run(ctx, e, item, prev)
	return h
}

// State reports the cache state of id without touching recency.
func (c *Cache) State(id string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		return e.state
	}
	return Absent
}

// Len returns the number of resolved entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Forget drops the resolved image for id so the next request refetches.
// In-flight entries are left alone. It reports whether anything was dropped.
func (c *Cache) Forget(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok || e.state != Resolved {
		return false
	}
	c.lru.Remove(e.elem)
	delete(c.entries, id)
	return true
}

// Close aborts every running fetch, fails their subscribers with ErrAborted
// and waits for the fetch goroutines to return. Later requests fail
// immediately.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.wg.Wait()
		return
	}
	c.closed = true

	var subs []*Handle
	for id, e := range c.entries {
		if e.state == Resolved {
			continue
		}
		e.cancel()
		subs = append(subs, e.subs...)
		e.subs = nil
		delete(c.entries, id)
	}
	c.mu.Unlock()

	err := fmt.Errorf("%w: cache closed", ErrAborted)
	for _, h := range subs {
		h.settle(nil, err)
	}
	c.wg.Wait()
}

func (c *Cache) run(ctx context.Context, e *entry, item model.Item, prev <-chan struct{}) {
	defer c.wg.Done()
	defer close(e.done)

	if prev != nil {
		<-prev
	}

	var img image.Image
	err := ctx.Err()
	if err == nil {
		img, err = c.fetcher.Fetch(ctx, item)
		if err == nil && img == nil {
			err = Decode(errors.New("fetcher returned no image"))
		}
	}
	c.complete(e, img, err)
}

// complete resolves or clears e and notifies its subscribers in request
// order. A fetch whose entry was aborted or replaced has no effect beyond
// clearing its own tombstone.
func (c *Cache) complete(e *entry, img image.Image, err error) {
	c.mu.Lock()
	if c.entries[e.id] != e {
		c.mu.Unlock()
		return
	}
	if e.state != InFlight {
		delete(c.entries, e.id)
		c.mu.Unlock()
		return
	}

	subs := e.subs
	e.subs = nil
	e.cancel()

	if err != nil {
		err = Classify(err)
		img = nil
		delete(c.entries, e.id)
	} else {
		e.state = Resolved
		e.image = img
		c.admit(e)
	}
	c.mu.Unlock()

	if err != nil {
		glog.V(1).Infof("[thumb]failed %s = %s\n", e.id, err)
	} else {
		glog.V(2).Infof("[thumb]resolved %s subscribers = %d\n", e.id, len(subs))
	}

	for _, h := range subs {
		h.settle(img, err)
	}
}

// admit inserts a freshly resolved entry, evicting from the LRU tail to stay
// within capacity. Called with c.mu held.
func (c *Cache) admit(e *entry) {
	for c.lru.Len() >= c.capacity {
		back := c.lru.Back()
		old := back.Value.(*entry)
		c.lru.Remove(back)
		delete(c.entries, old.id)
		glog.V(2).Infof("[thumb]evict %s\n", old.id)
	}
	e.elem = c.lru.PushFront(e)
}

// unsubscribe detaches h from its in-flight entry and aborts the fetch if h
// was the last subscriber. The aborted entry is left behind as Absent until
// its fetch returns.
func (c *Cache) unsubscribe(h *Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := h.entry
	if e == nil || e.state != InFlight || c.entries[e.id] != e {
		return
	}

	if i := slices.Index(e.subs, h); i >= 0 {
		e.subs = slices.Delete(e.subs, i, i+1)
	}
	if len(e.subs) > 0 {
		return
	}

	e.state = Absent
	e.cancel()
	glog.V(1).Infof("[thumb]abort %s\n", e.id)
}
