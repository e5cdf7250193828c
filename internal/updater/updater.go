// Package updater refreshes a bookmark store from a backing source.
package updater

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/nikbrunner/bm/internal/model"
)

// Updater replaces a store's items from a Source. At most one background
// refresh runs at a time.
type Updater struct {
	store  *model.Store
	source Source

	running atomic.Bool
	wg      sync.WaitGroup

	mu          sync.Mutex
	lastErr     error
	lastRefresh time.Time
}

// New creates an Updater that writes into store.
func New(store *model.Store, source Source) *Updater {
	return &Updater{store: store, source: source}
}

// Start begins a background refresh. It returns false without doing anything
// if a refresh started by Start is still running.
func (u *Updater) Start(ctx context.Context) bool {
	if !u.running.CompareAndSwap(false, true) {
		glog.V(1).Infof("[updater]refresh already running\n")
		return false
	}

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		defer u.running.Store(false)
		if err := u.Refresh(ctx); err != nil {
			glog.Errorf("[updater]%v\n", err)
		}
	}()
	return true
}

// Refresh loads the source and replaces the store's items.
// On failure the store is left untouched.
func (u *Updater) Refresh(ctx context.Context) error {
	started := time.Now()
	items, err := u.source.Load(ctx)
	if err == nil {
		err = ctx.Err()
	}

	u.mu.Lock()
	u.lastErr = err
	if err == nil {
		u.lastRefresh = time.Now()
	}
	u.mu.Unlock()

	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	u.store.Replace(items)
	glog.V(1).Infof("[updater]refreshed %d items in %s\n", u.store.Len(), time.Since(started))
	return nil
}

// Running reports whether a background refresh is in progress.
func (u *Updater) Running() bool {
	return u.running.Load()
}

// Wait blocks until background refreshes started by Start have finished.
func (u *Updater) Wait() {
	u.wg.Wait()
}

// LastError returns the outcome of the most recent refresh.
func (u *Updater) LastError() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastErr
}

// LastRefresh returns when the last successful refresh finished.
func (u *Updater) LastRefresh() time.Time {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastRefresh
}
