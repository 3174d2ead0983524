package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ma-discovery/internal/connector"
	"github.com/sells-group/ma-discovery/internal/crawl"
	"github.com/sells-group/ma-discovery/internal/enrich"
	"github.com/sells-group/ma-discovery/internal/model"
	"github.com/sells-group/ma-discovery/internal/runs"
	"github.com/sells-group/ma-discovery/internal/score"
	"github.com/sells-group/ma-discovery/internal/store"
)

// fakeFetcher serves canned page content keyed by URL path.
type fakeFetcher struct {
	pages map[string]string
	calls int
}

func (f *fakeFetcher) FetchPages(_ context.Context, baseURL string, paths []string) []*crawl.FetchResult {
	f.calls++
	var results []*crawl.FetchResult
	for _, path := range paths {
		url := baseURL
		if path != "" {
			url = baseURL + "/" + path
		}
		content, ok := f.pages[path]
		if !ok {
			results = append(results, &crawl.FetchResult{URL: url, StatusCode: 404})
			continue
		}
		results = append(results, &crawl.FetchResult{
			URL:         url,
			Content:     content,
			StatusCode:  200,
			ContentType: "text/html",
		})
	}
	return results
}

// failingConnector errors on every search.
type failingConnector struct{}

func (failingConnector) Name() string { return "failing" }

func (failingConnector) Search(context.Context, *model.AcquisitionCriteria, int) ([]*model.CandidateCompany, error) {
	return nil, eris.New("search backend unavailable")
}

func (failingConnector) GenerateQueries(*model.AcquisitionCriteria) []string { return nil }

const siteHTML = `<html><body>
<h1>Ledgerline</h1>
<p>Ledgerline is a B2B SaaS platform with subscription pricing for fintech
accounting teams. SOC 2 certified. Trusted by small businesses.</p>
</body></html>`

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline_test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestPipeline(t *testing.T, conn connector.Connector, fetcher enrich.PageFetcher) (*Pipeline, *runs.Registry) {
	t.Helper()
	registry := runs.NewRegistry(newTestStore(t))
	enricher := enrich.NewEnricher(fetcher, enrich.WithEnrichWorkers(2))
	return New(registry, conn, enricher, score.NewScorer(score.WithWorkers(2))), registry
}

func testCriteria() *model.AcquisitionCriteria {
	return &model.AcquisitionCriteria{
		IndustriesInclude: []string{"fintech", "healthcare tech"},
		KeywordsInclude:   []string{"accounting", "patient"},
		BusinessModel:     model.BusinessModelFilter{Types: []string{"SaaS"}},
		CustomerType:      []string{"B2B"},
	}
}

func TestPipelineRun(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{"": siteHTML}}
	candidates := []*model.CandidateCompany{
		{
			Name:        "Ledgerline",
			Domain:      "ledgerline.io",
			Website:     "https://ledgerline.io",
			Description: "Accounting software",
			Source:      "mock",
		},
		{
			Name:        "Ledgerline Inc",
			Domain:      "ledgerline.io",
			Website:     "https://ledgerline.io",
			Description: "Accounting software",
			Source:      "mock",
		},
		{
			Name:        "CareBridge",
			Domain:      "carebridge.com",
			Website:     "https://carebridge.com",
			Description: "Patient scheduling",
			Source:      "mock",
		},
	}
	p, registry := newTestPipeline(t, connector.NewMockConnector(candidates...), fetcher)

	run, scored, err := p.Run(context.Background(), testCriteria(), 10)
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, model.RunCompleted, run.Status)
	require.NotNil(t, run.StartedAt)
	require.NotNil(t, run.CompletedAt)
	assert.Equal(t, 3, run.TotalFound)
	assert.Equal(t, 2, run.TotalScored)

	// Duplicate Ledgerline entries collapse before enrichment.
	require.Len(t, scored, 2)
	for i, company := range scored {
		assert.Equal(t, i+1, company.Rank)
	}

	persisted, err := registry.Results(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	assert.Equal(t, scored[0].Name, persisted[0].Name)
	assert.Equal(t, scored[0].FitScore, persisted[0].FitScore)
}

func TestPipelineQuerySummary(t *testing.T) {
	criteria := &model.AcquisitionCriteria{
		IndustriesInclude: []string{"fintech", "devtools"},
		BusinessModel:     model.BusinessModelFilter{Types: []string{"SaaS"}},
		Geography:         model.GeographyFilter{Countries: []string{"US"}},
	}
	assert.Equal(t, "fintech, devtools | SaaS | US", querySummary(criteria))
	assert.Equal(t, "", querySummary(nil))
}

func TestPipelineSearchFailure(t *testing.T) {
	p, registry := newTestPipeline(t, failingConnector{}, &fakeFetcher{})

	run, err := p.Start(context.Background(), testCriteria(), 10)
	require.NoError(t, err)

	_, err = p.Execute(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: search")

	failed, err := registry.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunFailed, failed.Status)
	assert.Contains(t, failed.Error, "search backend unavailable")
	require.NotNil(t, failed.CompletedAt)
}

func TestPipelineStartLeavesRunPending(t *testing.T) {
	p, registry := newTestPipeline(t, connector.NewMockConnector(), &fakeFetcher{})

	run, err := p.Start(context.Background(), testCriteria(), 5)
	require.NoError(t, err)
	assert.Equal(t, model.RunPending, run.Status)
	assert.Equal(t, 5, run.MaxResults)
	assert.Equal(t, "fintech, healthcare tech | SaaS", run.Query)

	stored, err := registry.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunPending, stored.Status)
}

func TestCachingFetcher(t *testing.T) {
	st := newTestStore(t)
	inner := &fakeFetcher{pages: map[string]string{"": siteHTML, "about": "<html><body>About us</body></html>"}}
	cached := NewCachingFetcher(inner, st, time.Hour)

	paths := []string{"", "about", "pricing"}

	first := cached.FetchPages(context.Background(), "https://ledgerline.io", paths)
	require.Len(t, first, 3)
	assert.Equal(t, 1, inner.calls)

	// Second fetch is served from the cache; only successful pages persist.
	second := cached.FetchPages(context.Background(), "https://ledgerline.io", paths)
	require.Len(t, second, 2)
	assert.Equal(t, 1, inner.calls)
	for _, res := range second {
		assert.True(t, res.Success())
	}
	assert.Equal(t, first[0].Content, second[0].Content)

	// A different site misses the cache.
	cached.FetchPages(context.Background(), "https://carebridge.com", paths)
	assert.Equal(t, 2, inner.calls)
}

func TestCachingFetcherZeroTTL(t *testing.T) {
	st := newTestStore(t)
	inner := &fakeFetcher{pages: map[string]string{"": siteHTML}}
	cached := NewCachingFetcher(inner, st, 0)

	cached.FetchPages(context.Background(), "https://ledgerline.io", []string{""})
	cached.FetchPages(context.Background(), "https://ledgerline.io", []string{""})
	assert.Equal(t, 2, inner.calls)

	hit, err := st.GetCachedPages(context.Background(), "https://ledgerline.io")
	require.NoError(t, err)
	assert.Nil(t, hit)
}
