package crawl

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of any response body is read.
const maxBodyBytes = 512 * 1024

// defaultUserAgent identifies the crawler to target sites.
const defaultUserAgent = "MATargetBot/1.0 (+contact@example.com)"

// FetchResult is the outcome of fetching one URL.
type FetchResult struct {
	URL         string
	Content     string
	StatusCode  int
	ContentType string
	Err         error
}

// Success reports whether the fetch produced usable content.
func (r *FetchResult) Success() bool {
	return r.Err == nil && r.Content != "" && r.StatusCode >= 200 && r.StatusCode < 400
}

// Fetcher downloads pages politely: it honors robots.txt and rate limits
// requests per domain so company sites never see bursts.
type Fetcher struct {
	client        *http.Client
	robots        *RobotsChecker
	userAgent     string
	respectRobots bool
	perDomain     rate.Limit

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithUserAgent overrides the default crawler user agent.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithRequestInterval sets the minimum delay between requests to the same
// domain.
func WithRequestInterval(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.perDomain = rate.Every(d)
		}
	}
}

// WithoutRobots disables robots.txt checking. Tests only.
func WithoutRobots() FetcherOption {
	return func(f *Fetcher) { f.respectRobots = false }
}

// NewFetcher creates a Fetcher with sane timeouts and a one request per
// second per domain limit.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}

	f := &Fetcher{
		client:        client,
		userAgent:     defaultUserAgent,
		respectRobots: true,
		perDomain:     rate.Every(time.Second),
		limiters:      make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.robots = NewRobotsChecker(client, f.userAgent)
	return f
}

// Fetch downloads a single URL. Non-HTML responses and robots.txt blocks
// come back as failed results, not errors: a page that cannot be crawled
// is a data point, not a pipeline failure.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) *FetchResult {
	result := &FetchResult{URL: rawURL}

	if f.respectRobots && !f.robots.CanFetch(ctx, rawURL) {
		zap.L().Debug("crawl: blocked by robots.txt", zap.String("url", rawURL))
		result.StatusCode = http.StatusForbidden
		result.Err = eris.New("crawl: blocked by robots.txt")
		return result
	}

	if err := f.waitForDomain(ctx, rawURL); err != nil {
		result.Err = eris.Wrap(err, "crawl: rate limit wait")
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		result.Err = eris.Wrap(err, "crawl: create request")
		return result
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		result.Err = eris.Wrap(err, "crawl: fetch")
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode
	result.ContentType = resp.Header.Get("Content-Type")

	if !strings.Contains(result.ContentType, "text/") && !strings.Contains(result.ContentType, "html") {
		result.Err = eris.Errorf("crawl: non-text content type %q", result.ContentType)
		return result
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		result.Err = eris.Wrap(err, "crawl: read body")
		return result
	}
	result.Content = string(body)
	return result
}

// FetchPages fetches several paths under one base URL, returning results
// in request order. Paths that are already absolute URLs are fetched
// as-is.
func (f *Fetcher) FetchPages(ctx context.Context, baseURL string, paths []string) []*FetchResult {
	base := strings.TrimRight(baseURL, "/")
	results := make([]*FetchResult, 0, len(paths))

	for _, path := range paths {
		pageURL := path
		if !strings.HasPrefix(path, "http") {
			pageURL = base
			if path != "" {
				pageURL = base + "/" + strings.TrimLeft(path, "/")
			}
		}
		results = append(results, f.Fetch(ctx, pageURL))
	}
	return results
}

func (f *Fetcher) waitForDomain(ctx context.Context, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return err
	}

	f.mu.Lock()
	limiter, ok := f.limiters[parsed.Host]
	if !ok {
		limiter = rate.NewLimiter(f.perDomain, 1)
		f.limiters[parsed.Host] = limiter
	}
	f.mu.Unlock()

	return limiter.Wait(ctx)
}
