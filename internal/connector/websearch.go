package connector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/ma-discovery/internal/enrich"
	"github.com/sells-group/ma-discovery/internal/model"
	"github.com/sells-group/ma-discovery/internal/resilience"
)

// searchEndpoint is DuckDuckGo's HTML results page, which works without
// an API key.
const searchEndpoint = "https://html.duckduckgo.com/html/"

// skipDomains are aggregator and media sites that never represent the
// company itself.
var skipDomains = []string{
	"wikipedia.org", "linkedin.com", "facebook.com",
	"twitter.com", "youtube.com", "github.com",
	"crunchbase.com", "bloomberg.com", "forbes.com",
	"techcrunch.com", "reuters.com", "news.",
}

// WebSearchConnector discovers companies via DuckDuckGo HTML search.
type WebSearchConnector struct {
	client          *http.Client
	limiter         *rate.Limiter
	retry           resilience.RetryConfig
	endpoint        string
	resultsPerQuery int
	maxQueries      int
}

// NewWebSearchConnector creates a WebSearchConnector with a polite delay
// between queries.
func NewWebSearchConnector() *WebSearchConnector {
	return &WebSearchConnector{
		client:          &http.Client{Timeout: 30 * time.Second},
		limiter:         rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		retry:           resilience.DefaultRetryConfig(),
		endpoint:        searchEndpoint,
		resultsPerQuery: 10,
		maxQueries:      20,
	}
}

func (w *WebSearchConnector) Name() string { return "duckduckgo" }

// GenerateQueries builds discovery queries from industries, keywords, and
// business models, each suffixed with negative terms for exclusions.
func (w *WebSearchConnector) GenerateQueries(criteria *model.AcquisitionCriteria) []string {
	var queries []string
	queries = append(queries, buildIndustryQueries(criteria)...)
	queries = append(queries, buildKeywordQueries(criteria)...)

	industries := criteria.IndustriesInclude
	if len(industries) > 3 {
		industries = industries[:3]
	}
	for _, bm := range criteria.BusinessModel.Types {
		for _, industry := range industries {
			queries = append(queries, fmt.Sprintf("%s %s", industry, bm))
		}
	}

	if len(queries) > w.maxQueries {
		queries = queries[:w.maxQueries]
	}

	exclusions := exclusionSuffix(criteria)
	for i, q := range queries {
		queries[i] = strings.TrimSpace(q + " " + exclusions)
	}
	return queries
}

// Search runs the generated queries until the limit fills, deduplicating
// by domain along the way. Individual query failures are logged and
// skipped; only a fully failed search is an error.
func (w *WebSearchConnector) Search(ctx context.Context, criteria *model.AcquisitionCriteria, limit int) ([]*model.CandidateCompany, error) {
	queries := w.GenerateQueries(criteria)
	seen := make(map[string]bool)
	var candidates []*model.CandidateCompany
	var failed int

	for _, query := range queries {
		if len(candidates) >= limit {
			break
		}
		if err := w.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "websearch: rate limit wait")
		}

		results, err := w.executeSearch(ctx, query)
		if err != nil {
			zap.L().Warn("websearch: query failed",
				zap.String("query", query),
				zap.Error(err),
			)
			failed++
			continue
		}

		for _, candidate := range results {
			if candidate.Domain == "" || seen[candidate.Domain] {
				continue
			}
			seen[candidate.Domain] = true
			candidates = append(candidates, candidate)
			if len(candidates) >= limit {
				break
			}
		}
	}

	if len(candidates) == 0 && failed == len(queries) && failed > 0 {
		return nil, eris.New("websearch: all queries failed")
	}
	return candidates, nil
}

func (w *WebSearchConnector) executeSearch(ctx context.Context, query string) ([]*model.CandidateCompany, error) {
	return resilience.DoVal(ctx, w.retry, func(ctx context.Context) ([]*model.CandidateCompany, error) {
		return w.fetchResults(ctx, query)
	})
}

func (w *WebSearchConnector) fetchResults(ctx context.Context, query string) ([]*model.CandidateCompany, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "websearch: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; MATargetBot/1.0)")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "websearch: fetch results")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("websearch: status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "websearch: parse results")
	}
	return w.parseResults(doc, query), nil
}

// parseResults walks the result blocks and turns plausible company sites
// into candidates.
func (w *WebSearchConnector) parseResults(doc *goquery.Document, query string) []*model.CandidateCompany {
	var candidates []*model.CandidateCompany

	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find(".result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		href = resolveRedirect(href)

		candidate := parseResult(href, strings.TrimSpace(link.Text()),
			strings.TrimSpace(sel.Find(".result__snippet").Text()))
		if candidate != nil {
			candidate.Source = w.Name()
			candidates = append(candidates, candidate)
		}
		return len(candidates) < w.resultsPerQuery
	})

	zap.L().Debug("websearch: parsed results",
		zap.String("query", query),
		zap.Int("candidates", len(candidates)),
	)
	return candidates
}

// parseResult converts one search hit into a candidate, or nil when the
// hit is not a company site.
func parseResult(href, title, snippet string) *model.CandidateCompany {
	domain := enrich.ExtractDomain(href)
	if domain == "" {
		return nil
	}
	for _, skip := range skipDomains {
		if strings.Contains(domain, skip) {
			return nil
		}
	}

	// Titles usually read "Company Name - Tagline" or "Company | Tagline".
	name := strings.TrimSpace(strings.SplitN(strings.SplitN(title, " - ", 2)[0], " | ", 2)[0])
	if len(name) < 2 {
		name = titleCaseDomain(domain)
	}

	if len(snippet) > 500 {
		snippet = snippet[:500]
	}

	return &model.CandidateCompany{
		Name:         name,
		Domain:       domain,
		Website:      href,
		Description:  snippet,
		SourceURL:    href,
		DiscoveredAt: time.Now().UTC(),
	}
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveRedirect(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func titleCaseDomain(domain string) string {
	name := strings.SplitN(domain, ".", 2)[0]
	if name == "" {
		return domain
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
