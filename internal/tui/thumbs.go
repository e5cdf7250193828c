package tui

import (
	"errors"
	"image"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nikbrunner/bm/internal/model"
	"github.com/nikbrunner/bm/internal/thumbnail"
)

// ThumbState is the presentation state of a row's thumbnail.
type ThumbState int

const (
	ThumbNone    ThumbState = iota // row not subscribed
	ThumbLoading                   // waiting on the cache
	ThumbReady                     // image delivered
	ThumbFailed                    // fetch failed; placeholder shown
)

// thumbMsg carries a settled handle back into the update loop.
type thumbMsg struct {
	id     string
	handle *thumbnail.Handle
	img    image.Image
	err    error
}

// thumbs tracks one cache subscription per visible row.
// It is shared by App copies and only touched from the update loop.
type thumbs struct {
	cache   *thumbnail.Cache
	handles map[string]*thumbnail.Handle
	images  map[string]image.Image
	failed  map[string]bool
}

func newThumbs(cache *thumbnail.Cache) *thumbs {
	return &thumbs{
		cache:   cache,
		handles: make(map[string]*thumbnail.Handle),
		images:  make(map[string]image.Image),
		failed:  make(map[string]bool),
	}
}

// sync subscribes to thumbnails for visible rows and cancels subscriptions
// for rows that left the viewport. It returns commands waiting on new handles.
func (t *thumbs) sync(visible []model.Item) []tea.Cmd {
	if t == nil || t.cache == nil {
		return nil
	}

	want := make(map[string]bool, len(visible))
	for _, it := range visible {
		want[it.ID] = true
	}

	for id, h := range t.handles {
		if !want[id] {
			h.Cancel()
			t.drop(id)
		}
	}

	var cmds []tea.Cmd
	for _, it := range visible {
		if _, ok := t.handles[it.ID]; ok {
			continue
		}
		h := t.cache.Request(it)
		t.handles[it.ID] = h
		cmds = append(cmds, waitThumb(h))
	}
	return cmds
}

// deliver records a settled handle. Results from handles no longer tracked
// are ignored.
func (t *thumbs) deliver(msg thumbMsg) bool {
	if t == nil || t.handles[msg.id] != msg.handle {
		return false
	}
	switch {
	case msg.err == nil:
		t.images[msg.id] = msg.img
		delete(t.failed, msg.id)
	case errors.Is(msg.err, thumbnail.ErrCancelled):
		return false
	default:
		t.failed[msg.id] = true
	}
	return true
}

// forget drops subscriptions and cached images for items that were removed
// or whose URL changed.
func (t *thumbs) forget(ids []string) {
	if t == nil {
		return
	}
	for _, id := range ids {
		if h, ok := t.handles[id]; ok {
			h.Cancel()
		}
		t.drop(id)
		if t.cache != nil {
			t.cache.Forget(id)
		}
	}
}

// retryFailed clears failed rows so the next sync requests them again.
func (t *thumbs) retryFailed() {
	if t == nil {
		return
	}
	for id := range t.failed {
		t.drop(id)
	}
}

func (t *thumbs) drop(id string) {
	delete(t.handles, id)
	delete(t.images, id)
	delete(t.failed, id)
}

func (t *thumbs) state(id string) ThumbState {
	if t == nil {
		return ThumbNone
	}
	if _, ok := t.images[id]; ok {
		return ThumbReady
	}
	if t.failed[id] {
		return ThumbFailed
	}
	if _, ok := t.handles[id]; ok {
		return ThumbLoading
	}
	return ThumbNone
}

func (t *thumbs) image(id string) image.Image {
	if t == nil {
		return nil
	}
	return t.images[id]
}

// closeAll cancels every outstanding subscription.
func (t *thumbs) closeAll() {
	if t == nil {
		return
	}
	for id, h := range t.handles {
		h.Cancel()
		t.drop(id)
	}
}

func waitThumb(h *thumbnail.Handle) tea.Cmd {
	return func() tea.Msg {
		img, err := h.Result()
		return thumbMsg{id: h.ID(), handle: h, img: img, err: err}
	}
}
