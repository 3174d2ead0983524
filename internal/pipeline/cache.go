package pipeline

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/ma-discovery/internal/crawl"
	"github.com/sells-group/ma-discovery/internal/enrich"
	"github.com/sells-group/ma-discovery/internal/model"
	"github.com/sells-group/ma-discovery/internal/store"
)

// CachingFetcher wraps a page fetcher with the store's page cache so
// re-running discovery against the same companies does not refetch their
// sites within the TTL.
type CachingFetcher struct {
	inner enrich.PageFetcher
	store store.Store
	ttl   time.Duration
}

// NewCachingFetcher creates a CachingFetcher. A zero ttl disables caching
// writes and reads.
func NewCachingFetcher(inner enrich.PageFetcher, st store.Store, ttl time.Duration) *CachingFetcher {
	return &CachingFetcher{inner: inner, store: st, ttl: ttl}
}

// FetchPages serves a cached crawl when one is fresh, fetching and
// caching otherwise. Cache errors degrade to a plain fetch.
func (c *CachingFetcher) FetchPages(ctx context.Context, baseURL string, paths []string) []*crawl.FetchResult {
	if c.ttl <= 0 {
		return c.inner.FetchPages(ctx, baseURL, paths)
	}

	cached, err := c.store.GetCachedPages(ctx, baseURL)
	if err != nil {
		zap.L().Warn("pipeline: page cache read failed",
			zap.String("website", baseURL),
			zap.Error(err),
		)
	}
	if cached != nil {
		results := make([]*crawl.FetchResult, 0, len(cached.Pages))
		for _, page := range cached.Pages {
			results = append(results, &crawl.FetchResult{
				URL:         page.URL,
				Content:     page.Content,
				StatusCode:  http.StatusOK,
				ContentType: "text/html",
			})
		}
		return results
	}

	results := c.inner.FetchPages(ctx, baseURL, paths)

	var pages []model.CachedPage
	for _, res := range results {
		if res.Success() {
			pages = append(pages, model.CachedPage{URL: res.URL, Content: res.Content})
		}
	}
	if len(pages) > 0 {
		if err := c.store.SetCachedPages(ctx, baseURL, pages, c.ttl); err != nil {
			zap.L().Warn("pipeline: page cache write failed",
				zap.String("website", baseURL),
				zap.Error(err),
			)
		}
	}
	return results
}
