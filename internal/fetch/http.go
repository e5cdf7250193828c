package fetch

import (
	"context"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/semaphore"

	"github.com/nikbrunner/bm/internal/model"
	"github.com/nikbrunner/bm/internal/thumbnail"
)

const (
	DefaultConcurrency = 4
	DefaultTimeout     = 15 * time.Second
	DefaultSize        = 160
	DefaultMaxBytes    = 8 << 20

	userAgent = "bm/1.0 (+thumbnail fetcher)"
)

// HTTPParams holds parameters for creating a new HTTPFetcher.
type HTTPParams struct {
	Client      *http.Client // optional, built from Timeout if nil
	Timeout     time.Duration
	Concurrency int   // maximum simultaneous fetches
	Size        int   // thumbnails are scaled to fit Size x Size
	MaxBytes    int64 // response body limit
}

// HTTPFetcher retrieves thumbnails over HTTP. Image URLs are decoded
// directly; HTML pages are searched for a preview image first.
type HTTPFetcher struct {
	client   *http.Client
	sem      *semaphore.Weighted
	size     int
	maxBytes int64
}

// NewHTTPFetcher creates an HTTPFetcher, filling unset params with defaults.
func NewHTTPFetcher(params HTTPParams) *HTTPFetcher {
	if params.Timeout <= 0 {
		params.Timeout = DefaultTimeout
	}
	if params.Concurrency <= 0 {
		params.Concurrency = DefaultConcurrency
	}
	if params.Size <= 0 {
		params.Size = DefaultSize
	}
	if params.MaxBytes <= 0 {
		params.MaxBytes = DefaultMaxBytes
	}

	client := params.Client
	if client == nil {
		client = &http.Client{
			Timeout: params.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}

	return &HTTPFetcher{
		client:   client,
		sem:      semaphore.NewWeighted(int64(params.Concurrency)),
		size:     params.Size,
		maxBytes: params.MaxBytes,
	}
}

// Fetch implements thumbnail.Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, item model.Item) (image.Image, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, thumbnail.Classify(err)
	}
	defer f.sem.Release(1)

	img, err := f.fetchPage(ctx, item.URL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, thumbnail.Classify(ctx.Err())
		}
		return nil, err
	}
	return Scale(img, f.size), nil
}

func (f *HTTPFetcher) fetchPage(ctx context.Context, rawURL string) (image.Image, error) {
	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body := io.LimitReader(resp.Body, f.maxBytes)
	if !isHTML(resp.Header.Get("Content-Type")) {
		return decode(body)
	}

	src, err := DiscoverImage(body, resp.Request.URL)
	if err != nil {
		return nil, thumbnail.Decode(err)
	}
	glog.V(2).Infof("[fetch]preview %s -> %s\n", rawURL, src)

	imgResp, err := f.get(ctx, src)
	if err != nil {
		return nil, err
	}
	defer func() { _ = imgResp.Body.Close() }()

	return decode(io.LimitReader(imgResp.Body, f.maxBytes))
}

func (f *HTTPFetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, thumbnail.Transport(err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,image/*;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, thumbnail.Transport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, thumbnail.Transport(fmt.Errorf("GET %s: %s", rawURL, resp.Status))
	}
	return resp, nil
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
