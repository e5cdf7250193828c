package model

import (
	"iter"
	"slices"
	"sort"
	"sync"
)

// Snapshot is a coherent view of the store at one point in time. Its slices
// are owned by the receiver.
type Snapshot struct {
	Items []Item
	Tags  []string
}

// Delta is an additive/subtractive change to the item collection. Removals
// are applied before upserts.
type Delta struct {
	Upsert []Item
	Remove []string
}

// Store holds the authoritative item collection and its tag index.
//
// Published item slices are never modified in place, so a sequence returned
// by Filter keeps iterating its own snapshot while mutations proceed.
type Store struct {
	// writeMu serializes mutations together with their notifications.
	writeMu sync.Mutex

	mu        sync.RWMutex
	items     []Item
	index     map[string]int
	tags      []string
	observers map[int]func(Snapshot)
	nextObs   int
}

// NewStore creates a Store holding items.
func NewStore(items ...Item) *Store {
	s := &Store{observers: make(map[int]func(Snapshot))}
	s.publish(dedupe(items))
	return s
}

// Items returns a copy of the current items in store order.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Tags returns the sorted union of all item tags.
func (s *Store) Tags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tags)
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Get finds an item by ID.
func (s *Store) Get(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return Item{}, false
	}
	return s.items[i], true
}

// HasURL reports whether any item points at rawURL.
func (s *Store) HasURL(rawURL string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.URL == rawURL {
			return true
		}
	}
	return false
}

// Snapshot returns the items and tags as of now.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Items: slices.Clone(s.items),
		Tags:  slices.Clone(s.tags),
	}
}

// Filter returns the items matching pred, in store order. The sequence is
// bound to the collection as it was when Filter was called and may be
// ranged over any number of times.
func (s *Store) Filter(pred Predicate) iter.Seq[Item] {
	if pred == nil {
		pred = All
	}

	s.mu.RLock()
	items := s.items
	s.mu.RUnlock()

	return func(yield func(Item) bool) {
		for _, item := range items {
			if !pred(item) {
				continue
			}
			if !yield(item) {
				return
			}
		}
	}
}

// Query is Filter with the browser's tag + search criteria.
func (s *Store) Query(q Query) iter.Seq[Item] {
	return s.Filter(q.Predicate())
}

// Replace swaps the entire collection. Later duplicates of an ID replace
// earlier ones in place.
func (s *Store) Replace(items []Item) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.publish(dedupe(items))
	s.notify()
}

// Apply removes and upserts items. Upserted items keep the position of the
// item they replace; new items are appended.
func (s *Store) Apply(d Delta) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	current := s.items
	s.mu.RUnlock()

	remove := make(map[string]bool, len(d.Remove))
	for _, id := range d.Remove {
		remove[id] = true
	}

	next := make([]Item, 0, len(current)+len(d.Upsert))
	for _, item := range current {
		if !remove[item.ID] {
			next = append(next, item)
		}
	}
	next = append(next, d.Upsert...)

	s.publish(dedupe(next))
	s.notify()
}

// Merge appends items whose URL is not already present and returns how many
// were added and skipped. Items without an ID are assigned one.
func (s *Store) Merge(items []Item) (added, skipped int) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	current := s.items
	s.mu.RUnlock()

	urls := make(map[string]bool, len(current))
	for _, item := range current {
		urls[item.URL] = true
	}

	next := slices.Clone(current)
	for _, item := range items {
		if urls[item.URL] {
			skipped++
			continue
		}
		if item.ID == "" {
			item.ID = GenerateUUID()
		}
		urls[item.URL] = true
		next = append(next, item)
		added++
	}

	if added > 0 {
		s.publish(dedupe(next))
		s.notify()
	}
	return added, skipped
}

// Subscribe registers fn to receive a snapshot after every mutation.
// Notifications arrive in mutation order on the mutating goroutine; fn must
// not mutate the store. The returned func unregisters fn.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

// publish installs items as the current collection. items must not be
// shared with any caller.
func (s *Store) publish(items []Item) {
	index := make(map[string]int, len(items))
	tagSet := make(map[string]bool)
	for i, item := range items {
		index[item.ID] = i
		for _, tag := range item.Tags {
			tagSet[tag] = true
		}
	}

	tags := make([]string, 0, len(tagSet))
	for tag := range tagSet {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	s.mu.Lock()
	s.items = items
	s.index = index
	s.tags = tags
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.RLock()
	if len(s.observers) == 0 {
		s.mu.RUnlock()
		return
	}
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.observers[id])
	}
	items, tags := s.items, s.tags
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(Snapshot{Items: slices.Clone(items), Tags: slices.Clone(tags)})
	}
}

// dedupe copies items into a fresh slice, keeping the first position and the
// last value of every ID.
func dedupe(items []Item) []Item {
	out := make([]Item, 0, len(items))
	pos := make(map[string]int, len(items))
	for _, item := range items {
		item = item.clone()
		if i, ok := pos[item.ID]; ok {
			out[i] = item
			continue
		}
		pos[item.ID] = len(out)
		out = append(out, item)
	}
	return out
}
