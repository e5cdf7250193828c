package updater_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nikbrunner/bm/internal/model"
	"github.com/nikbrunner/bm/internal/storage"
	"github.com/nikbrunner/bm/internal/updater"
	"gotest.tools/v3/assert"
)

func TestUpdater_RefreshReplacesStore(t *testing.T) {
	store := model.NewStore(model.Item{ID: "old", URL: "https://old.example"})
	src := updater.SourceFunc(func(context.Context) ([]model.Item, error) {
		return []model.Item{
			{ID: "a", URL: "https://a.example", Tags: []string{"x"}},
			{ID: "b", URL: "https://b.example", Tags: []string{"y"}},
		}, nil
	})

	u := updater.New(store, src)
	assert.NilError(t, u.Refresh(context.Background()))

	assert.Equal(t, store.Len(), 2)
	_, ok := store.Get("old")
	assert.Assert(t, !ok)
	assert.DeepEqual(t, store.Tags(), []string{"x", "y"})
	assert.NilError(t, u.LastError())
	assert.Assert(t, !u.LastRefresh().IsZero())
}

func TestUpdater_FailureKeepsStore(t *testing.T) {
	store := model.NewStore(model.Item{ID: "keep", URL: "https://keep.example"})
	boom := errors.New("boom")
	u := updater.New(store, updater.SourceFunc(func(context.Context) ([]model.Item, error) {
		return nil, boom
	}))

	err := u.Refresh(context.Background())
	assert.Assert(t, errors.Is(err, boom))
	assert.Equal(t, store.Len(), 1)
	assert.Assert(t, errors.Is(u.LastError(), boom))
	assert.Assert(t, u.LastRefresh().IsZero())
}

func TestUpdater_CancelledContextKeepsStore(t *testing.T) {
	store := model.NewStore(model.Item{ID: "keep"})
	ctx, cancel := context.WithCancel(context.Background())
	u := updater.New(store, updater.SourceFunc(func(context.Context) ([]model.Item, error) {
		cancel()
		return []model.Item{}, nil
	}))

	err := u.Refresh(ctx)
	assert.Assert(t, errors.Is(err, context.Canceled))
	assert.Equal(t, store.Len(), 1)
}

func TestUpdater_StartIsSingleFlight(t *testing.T) {
	store := model.NewStore()
	entered := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	u := updater.New(store, updater.SourceFunc(func(context.Context) ([]model.Item, error) {
		calls++
		entered <- struct{}{}
		<-release
		return []model.Item{{ID: "a"}}, nil
	}))

	assert.Assert(t, u.Start(context.Background()))
	<-entered
	assert.Assert(t, u.Running())
	assert.Assert(t, !u.Start(context.Background()))

	close(release)
	u.Wait()

	assert.Assert(t, !u.Running())
	assert.Equal(t, calls, 1)
	assert.Equal(t, store.Len(), 1)

	// A finished refresh frees the slot.
	go func() { <-entered }()
	assert.Assert(t, u.Start(context.Background()))
	u.Wait()
	assert.Equal(t, calls, 2)
}

func TestUpdater_NotifiesSubscribers(t *testing.T) {
	store := model.NewStore()
	var seen []int
	cancel := store.Subscribe(func(s model.Snapshot) {
		seen = append(seen, len(s.Items))
	})
	defer cancel()

	u := updater.New(store, updater.SourceFunc(func(context.Context) ([]model.Item, error) {
		return []model.Item{{ID: "a"}, {ID: "b"}}, nil
	}))
	assert.NilError(t, u.Refresh(context.Background()))

	assert.DeepEqual(t, seen, []int{2})
}

func TestStorageSource(t *testing.T) {
	st := storage.NewJSONStorage(filepath.Join(t.TempDir(), "bookmarks.json"))
	assert.NilError(t, st.Save([]model.Item{{ID: "a", URL: "https://a.example", Tags: []string{"x"}}}))

	items, err := updater.StorageSource{Storage: st}.Load(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, len(items), 1)
	assert.Equal(t, items[0].ID, "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = updater.StorageSource{Storage: st}.Load(ctx)
	assert.Assert(t, errors.Is(err, context.Canceled))
}

func TestHTMLFileSource_StableIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.html")
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><A HREF="https://a.example" TAGS="x">A</A>
    <DT><A HREF="https://b.example">B</A>
</DL><p>`
	assert.NilError(t, os.WriteFile(path, []byte(html), 0644))

	src := updater.HTMLFileSource{Path: path}
	first, err := src.Load(context.Background())
	assert.NilError(t, err)
	second, err := src.Load(context.Background())
	assert.NilError(t, err)

	assert.Equal(t, len(first), 2)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].ID, updater.StableID(first[i].URL))
	}
	assert.Assert(t, first[0].ID != first[1].ID)
	assert.DeepEqual(t, first[0].Tags, []string{"x"})
}

func TestHTMLFileSource_MissingFile(t *testing.T) {
	_, err := updater.HTMLFileSource{Path: filepath.Join(t.TempDir(), "nope.html")}.Load(context.Background())
	assert.Assert(t, errors.Is(err, os.ErrNotExist))
}
