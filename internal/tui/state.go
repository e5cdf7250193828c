package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/nikbrunner/bm/internal/model"
	"github.com/nikbrunner/bm/internal/tui/layout"
)

// Mode represents the current interaction mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch      // search input focused
	ModeHelp        // help overlay
)

// SearchState holds the live search input.
type SearchState struct {
	Input textinput.Model
}

// NewSearchState creates a new SearchState with initialized input.
func NewSearchState(cfg layout.LayoutConfig) SearchState {
	input := textinput.New()
	input.Prompt = "/"
	input.Placeholder = "search title, URL or tag"
	input.CharLimit = cfg.Input.SearchCharLimit
	input.Width = cfg.Input.SearchWidth
	return SearchState{Input: input}
}

// Value returns the current search text.
func (s SearchState) Value() string {
	return s.Input.Value()
}

// Reset clears the search input.
func (s *SearchState) Reset() {
	s.Input.Reset()
	s.Input.Blur()
}

// TagFilter cycles through the store's tags. Index -1 means no tag filter.
type TagFilter struct {
	Tags []string
	Idx  int
}

// Current returns the active tag, or "" if none.
func (t TagFilter) Current() string {
	if t.Idx < 0 || t.Idx >= len(t.Tags) {
		return ""
	}
	return t.Tags[t.Idx]
}

// Next advances to the following tag, wrapping through "no filter".
func (t *TagFilter) Next() {
	if len(t.Tags) == 0 {
		t.Idx = -1
		return
	}
	t.Idx++
	if t.Idx >= len(t.Tags) {
		t.Idx = -1
	}
}

// Prev moves to the preceding tag, wrapping through "no filter".
func (t *TagFilter) Prev() {
	if len(t.Tags) == 0 {
		t.Idx = -1
		return
	}
	t.Idx--
	if t.Idx < -1 {
		t.Idx = len(t.Tags) - 1
	}
}

// SetTags replaces the tag list, keeping the active tag if it still exists.
func (t *TagFilter) SetTags(tags []string) {
	current := t.Current()
	t.Tags = tags
	t.Idx = -1
	for i, tag := range tags {
		if tag == current {
			t.Idx = i
			return
		}
	}
}

// storeWatcher forwards store snapshots to the bubbletea loop.
// Only the latest pending snapshot is kept.
type storeWatcher struct {
	ch     chan model.Snapshot
	cancel func()
}

func watchStore(store *model.Store) *storeWatcher {
	w := &storeWatcher{ch: make(chan model.Snapshot, 1)}
	w.cancel = store.Subscribe(w.push)
	return w
}

func (w *storeWatcher) push(s model.Snapshot) {
	for {
		select {
		case w.ch <- s:
			return
		default:
		}
		// Drop the stale snapshot and retry.
		select {
		case <-w.ch:
		default:
		}
	}
}
