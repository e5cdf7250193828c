package fetch_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/nikbrunner/bm/internal/fetch"
	"github.com/nikbrunner/bm/internal/model"
	"github.com/nikbrunner/bm/internal/thumbnail"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	assert.NilError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newServer(t *testing.T, imageBytes []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/image.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(imageBytes)
	})
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head>
<link rel="icon" href="/favicon.ico">
<meta property="og:image" content="/image.png">
</head><body>hello</body></html>`))
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>No preview</title></head></html>`))
	})
	mux.HandleFunc("/garbage.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("definitely not a png"))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcher_DirectImageIsScaled(t *testing.T) {
	srv := newServer(t, pngBytes(t, 400, 200))
	f := fetch.NewHTTPFetcher(fetch.HTTPParams{Size: 160})

	img, err := f.Fetch(context.Background(), model.Item{ID: "1", URL: srv.URL + "/image.png"})
	assert.NilError(t, err)
	assert.Equal(t, img.Bounds().Dx(), 160)
	assert.Equal(t, img.Bounds().Dy(), 80)
}

func TestHTTPFetcher_FollowsPreviewImage(t *testing.T) {
	srv := newServer(t, pngBytes(t, 32, 32))
	f := fetch.NewHTTPFetcher(fetch.HTTPParams{})

	img, err := f.Fetch(context.Background(), model.Item{ID: "1", URL: srv.URL + "/article"})
	assert.NilError(t, err)
	assert.Equal(t, img.Bounds().Dx(), 32)
}

func TestHTTPFetcher_Failures(t *testing.T) {
	srv := newServer(t, pngBytes(t, 8, 8))
	f := fetch.NewHTTPFetcher(fetch.HTTPParams{})

	tests := []struct {
		name string
		path string
		want error
	}{
		{"not found", "/missing", thumbnail.ErrTransport},
		{"page without preview", "/plain", thumbnail.ErrDecode},
		{"undecodable image", "/garbage.png", thumbnail.ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Fetch(context.Background(), model.Item{ID: "1", URL: srv.URL + tt.path})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHTTPFetcher_UnreachableHost(t *testing.T) {
	f := fetch.NewHTTPFetcher(fetch.HTTPParams{Timeout: time.Second})
	_, err := f.Fetch(context.Background(), model.Item{ID: "1", URL: "http://127.0.0.1:1/"})
	assert.ErrorIs(t, err, thumbnail.ErrTransport)
}

func TestHTTPFetcher_CancelledContextAborts(t *testing.T) {
	srv := newServer(t, nil)
	f := fetch.NewHTTPFetcher(fetch.HTTPParams{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Fetch(ctx, model.Item{ID: "1", URL: srv.URL + "/slow"})
	assert.ErrorIs(t, err, thumbnail.ErrAborted)
}

func TestDiscoverImage(t *testing.T) {
	base, _ := url.Parse("https://example.com/posts/1")

	tests := []struct {
		name    string
		page    string
		want    string
		wantErr error
	}{
		{
			name: "open graph beats icon",
			page: `<head><link rel="icon" href="/fav.ico"><meta property="og:image" content="https://cdn.example.com/og.png"></head>`,
			want: "https://cdn.example.com/og.png",
		},
		{
			name: "twitter card beats touch icon",
			page: `<head><link rel="apple-touch-icon" href="/touch.png"><meta name="twitter:image" content="tw.png"></head>`,
			want: "https://example.com/posts/tw.png",
		},
		{
			name: "touch icon beats icon",
			page: `<head><link rel="icon" href="/fav.ico"><link rel="apple-touch-icon" href="/touch.png"></head>`,
			want: "https://example.com/touch.png",
		},
		{
			name: "icon fallback",
			page: `<head><link rel="shortcut icon" href="/fav.ico"></head>`,
			want: "https://example.com/fav.ico",
		},
		{
			name:    "nothing",
			page:    `<head><title>x</title></head><body><img src="/body.png"></body>`,
			wantErr: fetch.ErrNoPreview,
		},
		{
			name:    "empty content ignored",
			page:    `<head><meta property="og:image" content="  "></head>`,
			wantErr: fetch.ErrNoPreview,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fetch.DiscoverImage(strings.NewReader(tt.page), base)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NilError(t, err)
			assert.Equal(t, got, tt.want)
		})
	}
}

func TestScale(t *testing.T) {
	tests := []struct {
		name         string
		w, h, size   int
		wantW, wantH int
	}{
		{"fits already", 100, 50, 160, 100, 50},
		{"landscape", 320, 160, 160, 160, 80},
		{"portrait", 100, 400, 100, 25, 100},
		{"thin line keeps one pixel", 1000, 1, 100, 100, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fetch.Scale(image.NewRGBA(image.Rect(0, 0, tt.w, tt.h)), tt.size)
			if got.Bounds().Dx() != tt.wantW || got.Bounds().Dy() != tt.wantH {
				t.Errorf("Scale(%dx%d, %d) = %dx%d, want %dx%d",
					tt.w, tt.h, tt.size, got.Bounds().Dx(), got.Bounds().Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestDiskCache_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	next := thumbnail.FetcherFunc(func(context.Context, model.Item) (image.Image, error) {
		calls.Add(1)
		return image.NewRGBA(image.Rect(0, 0, 4, 3)), nil
	})

	item := model.Item{ID: "item/with:odd chars", URL: "https://example.com"}

	first := fetch.NewDiskCache(dir, next)
	_, err := first.Fetch(context.Background(), item)
	assert.NilError(t, err)
	assert.Assert(t, first.Has(item))

	second := fetch.NewDiskCache(dir, next)
	img, err := second.Fetch(context.Background(), item)
	assert.NilError(t, err)
	assert.Equal(t, img.Bounds().Dx(), 4)
	assert.Equal(t, img.Bounds().Dy(), 3)
	assert.Equal(t, calls.Load(), int32(1))

	assert.NilError(t, second.Forget(item))
	assert.Assert(t, !second.Has(item))
	assert.NilError(t, second.Forget(item))
}

func TestDiskCache_URLChangeRefetches(t *testing.T) {
	var calls atomic.Int32
	c := fetch.NewDiskCache(t.TempDir(), thumbnail.FetcherFunc(func(_ context.Context, it model.Item) (image.Image, error) {
		calls.Add(1)
		return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
	}))

	before := model.Item{ID: "1", URL: "https://old.example"}
	after := model.Item{ID: "1", URL: "https://new.example"}

	_, err := c.Fetch(context.Background(), before)
	assert.NilError(t, err)
	assert.Assert(t, c.Has(before))
	assert.Assert(t, !c.Has(after))

	_, err = c.Fetch(context.Background(), after)
	assert.NilError(t, err)
	assert.Equal(t, calls.Load(), int32(2))

	_, err = c.Fetch(context.Background(), after)
	assert.NilError(t, err)
	assert.Equal(t, calls.Load(), int32(2))
}

func TestDiskCache_FailuresAreNotStored(t *testing.T) {
	boom := thumbnail.Transport(errors.New("boom"))
	c := fetch.NewDiskCache(t.TempDir(), thumbnail.FetcherFunc(func(context.Context, model.Item) (image.Image, error) {
		return nil, boom
	}))

	it := model.Item{ID: "x"}
	_, err := c.Fetch(context.Background(), it)
	assert.ErrorIs(t, err, thumbnail.ErrTransport)
	assert.Assert(t, !c.Has(it))
}

func TestPrefetch(t *testing.T) {
	cache := thumbnail.NewCache(thumbnail.CacheParams{
		Fetcher: thumbnail.FetcherFunc(func(_ context.Context, item model.Item) (image.Image, error) {
			if item.ID == "bad" {
				return nil, thumbnail.Decode(errors.New("nope"))
			}
			return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
		}),
	})
	defer cache.Close()

	items := []model.Item{{ID: "a"}, {ID: "b"}, {ID: "bad"}, {ID: "c"}}
	n, err := fetch.Prefetch(context.Background(), cache, items, 2)
	assert.NilError(t, err)
	assert.Equal(t, n, 3)
	assert.Equal(t, cache.State("a"), thumbnail.Resolved)
	assert.Equal(t, cache.State("bad"), thumbnail.Absent)
}
