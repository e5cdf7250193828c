// Package culler finds bookmarks whose URLs no longer resolve.
package culler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/nikbrunner/bm/internal/model"
	"golang.org/x/sync/errgroup"
)

// Status represents the health status of a URL.
type Status int

const (
	Healthy     Status = iota // 2xx or 3xx response
	Dead                      // 404 or 410 Gone
	Unreachable               // timeout, DNS failure, connection refused, etc.
)

func (s Status) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Dead:
		return "dead"
	default:
		return "unreachable"
	}
}

// Result holds the check result for a single item.
type Result struct {
	Item       model.Item
	Status     Status
	StatusCode int    // HTTP status code (0 if connection failed)
	Error      string // Error message for unreachable URLs
}

// ProgressFunc is called after each URL is checked.
// completed is the number of URLs checked so far, total is the total count.
type ProgressFunc func(completed, total int)

// Params configures CheckURLs. Zero values fall back to defaults.
type Params struct {
	Client      *http.Client
	Concurrency int
	Timeout     time.Duration
	// ExcludeDomains lists domains where 404s are treated as "possibly private"
	// instead of dead.
	ExcludeDomains []string
	OnProgress     ProgressFunc
}

const (
	DefaultConcurrency = 8
	DefaultTimeout     = 10 * time.Second
)

// CheckURLs checks all item URLs concurrently and returns results in item order.
// Items not checked before ctx is done are reported as unreachable.
func CheckURLs(ctx context.Context, items []model.Item, p Params) []Result {
	if len(items) == 0 {
		return nil
	}

	if p.Concurrency <= 0 {
		p.Concurrency = DefaultConcurrency
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	client := p.Client
	if client == nil {
		client = &http.Client{
			Timeout: p.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Follow redirects but limit to 10
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}

	// Build exclude map for fast lookup
	excludeMap := make(map[string]bool)
	for _, domain := range p.ExcludeDomains {
		excludeMap[strings.ToLower(domain)] = true
	}

	results := make([]Result, len(items))

	// Progress tracking
	var progressMu sync.Mutex
	completed := 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Concurrency)
	for i := range items {
		g.Go(func() error {
			results[i] = checkURL(ctx, client, items[i], excludeMap)
			glog.V(2).Infof("[cull]%s %s\n", results[i].Status, items[i].URL)

			if p.OnProgress != nil {
				progressMu.Lock()
				completed++
				p.OnProgress(completed, len(items))
				progressMu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	return results
}

// DeadDelta returns a delta that removes every item reported dead.
func DeadDelta(results []Result) model.Delta {
	var d model.Delta
	for _, r := range results {
		if r.Status == Dead {
			d.Remove = append(d.Remove, r.Item.ID)
		}
	}
	return d
}

// checkURL checks a single URL and returns the result.
func checkURL(ctx context.Context, client *http.Client, item model.Item, excludeMap map[string]bool) Result {
	result := Result{
		Item: item,
	}

	// Try HEAD first (faster, less bandwidth)
	resp, err := do(ctx, client, http.MethodHead, item.URL)
	if err != nil || resp.StatusCode == http.StatusMethodNotAllowed {
		if resp != nil {
			resp.Body.Close()
		}
		// HEAD failed, try GET as fallback (some servers don't support HEAD)
		resp, err = do(ctx, client, http.MethodGet, item.URL)
		if err != nil {
			result.Status = Unreachable
			result.Error = normalizeError(err.Error())
			return result
		}
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		result.Status = Healthy
	case resp.StatusCode == 404 || resp.StatusCode == 410:
		// Check if this domain is excluded (e.g., private repos)
		if isExcludedDomain(item.URL, excludeMap) {
			result.Status = Unreachable
			result.Error = "Possibly private (auth required)"
		} else {
			result.Status = Dead
		}
	default:
		// Other errors (500, 403, etc.) - treat as unreachable
		result.Status = Unreachable
		result.Error = http.StatusText(resp.StatusCode)
	}

	return result
}

func do(ctx context.Context, client *http.Client, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return client.Do(req)
}

// isExcludedDomain checks if the URL's domain is in the exclude list.
func isExcludedDomain(rawURL string, excludeMap map[string]bool) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if excludeMap[host] {
		return true
	}
	// Parent domains match too (e.g., "api.github.com" matches "github.com")
	for domain := range excludeMap {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// normalizeError simplifies verbose error messages into readable categories.
func normalizeError(errStr string) string {
	lower := strings.ToLower(errStr)

	switch {
	case strings.Contains(lower, "no such host"):
		return "DNS failure"
	case strings.Contains(lower, "context deadline exceeded"),
		strings.Contains(lower, "timeout"):
		return "Timeout"
	case strings.Contains(lower, "context canceled"):
		return "Cancelled"
	case strings.Contains(lower, "connection refused"):
		return "Connection refused"
	case strings.Contains(lower, "certificate"):
		return "TLS/certificate error"
	case strings.Contains(lower, "network is unreachable"):
		return "Network unreachable"
	case strings.Contains(lower, "tls:"):
		return "TLS error"
	default:
		return errStr
	}
}
