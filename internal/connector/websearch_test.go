package connector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/ma-discovery/internal/model"
	"github.com/sells-group/ma-discovery/internal/resilience"
)

const searchResultsHTML = `<html><body>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fledgerline.io%2F">Ledgerline - Accounting Analytics</a>
  <div class="result__snippet">Subscription analytics for finance teams.</div>
</div>
<div class="result">
  <a class="result__a" href="https://en.wikipedia.org/wiki/Accounting">Accounting - Wikipedia</a>
  <div class="result__snippet">Accounting is the processing of financial information.</div>
</div>
<div class="result">
  <a class="result__a" href="https://flowstack.com/product">FlowStack | Workflow Automation</a>
  <div class="result__snippet">Automate back office workflows.</div>
</div>
</body></html>`

func testWebSearchConnector(endpoint string) *WebSearchConnector {
	return &WebSearchConnector{
		client:          &http.Client{Timeout: 5 * time.Second},
		limiter:         rate.NewLimiter(rate.Inf, 1),
		retry:           resilience.RetryConfig{MaxAttempts: 1},
		endpoint:        endpoint,
		resultsPerQuery: 10,
		maxQueries:      20,
	}
}

func TestWebSearchSearch(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		queries = append(queries, r.PostForm.Get("q"))
		fmt.Fprint(w, searchResultsHTML)
	}))
	defer srv.Close()

	conn := testWebSearchConnector(srv.URL)
	criteria := &model.AcquisitionCriteria{
		IndustriesInclude: []string{"fintech"},
	}

	candidates, err := conn.Search(context.Background(), criteria, 10)
	require.NoError(t, err)

	// Wikipedia is skipped; the duplicate domains from later queries
	// collapse into one candidate each.
	require.Len(t, candidates, 2)
	assert.Equal(t, "Ledgerline", candidates[0].Name)
	assert.Equal(t, "ledgerline.io", candidates[0].Domain)
	assert.Equal(t, "https://ledgerline.io/", candidates[0].Website)
	assert.Equal(t, "duckduckgo", candidates[0].Source)
	assert.Equal(t, "Subscription analytics for finance teams.", candidates[0].Description)
	assert.Equal(t, "FlowStack", candidates[1].Name)
	assert.Equal(t, []string{"fintech company"}, queries)
}

func TestWebSearchLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, searchResultsHTML)
	}))
	defer srv.Close()

	conn := testWebSearchConnector(srv.URL)
	criteria := &model.AcquisitionCriteria{
		IndustriesInclude: []string{"fintech"},
	}

	candidates, err := conn.Search(context.Background(), criteria, 1)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}

func TestWebSearchAllQueriesFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	conn := testWebSearchConnector(srv.URL)
	criteria := &model.AcquisitionCriteria{
		IndustriesInclude: []string{"fintech"},
	}

	_, err := conn.Search(context.Background(), criteria, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all queries failed")
}

func TestWebSearchPartialFailure(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, searchResultsHTML)
	}))
	defer srv.Close()

	conn := testWebSearchConnector(srv.URL)
	criteria := &model.AcquisitionCriteria{
		IndustriesInclude: []string{"fintech", "healthcare"},
	}

	candidates, err := conn.Search(context.Background(), criteria, 10)
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}

func TestGenerateQueriesExclusions(t *testing.T) {
	conn := NewWebSearchConnector()
	criteria := &model.AcquisitionCriteria{
		IndustriesInclude: []string{"fintech"},
		KeywordsInclude:   []string{"analytics"},
		KeywordsExclude:   []string{"gambling"},
		BusinessModel: model.BusinessModelFilter{
			Types: []string{"SaaS"},
		},
	}

	queries := conn.GenerateQueries(criteria)

	require.NotEmpty(t, queries)
	assert.Contains(t, queries, "fintech company -gambling")
	assert.Contains(t, queries, "analytics SaaS -gambling")
	assert.Contains(t, queries, "fintech SaaS -gambling")
	assert.LessOrEqual(t, len(queries), 20)
	for _, q := range queries {
		assert.Contains(t, q, "-gambling")
	}
}

func TestParseResult(t *testing.T) {
	tests := []struct {
		name    string
		href    string
		title   string
		snippet string
		want    *model.CandidateCompany
	}{
		{
			name:    "company site",
			href:    "https://acme.io/about",
			title:   "Acme - Billing for SMBs",
			snippet: "Billing automation.",
			want:    &model.CandidateCompany{Name: "Acme", Domain: "acme.io"},
		},
		{
			name:  "pipe separated title",
			href:  "https://flowstack.com",
			title: "FlowStack | Workflow Automation",
			want:  &model.CandidateCompany{Name: "FlowStack", Domain: "flowstack.com"},
		},
		{
			name:  "name falls back to domain",
			href:  "https://acme.io",
			title: "A",
			want:  &model.CandidateCompany{Name: "Acme", Domain: "acme.io"},
		},
		{
			name:  "aggregator skipped",
			href:  "https://www.linkedin.com/company/acme",
			title: "Acme | LinkedIn",
			want:  nil,
		},
		{
			name: "unparseable href skipped",
			href: "",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseResult(tt.href, tt.title, tt.snippet)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want.Name, got.Name)
			assert.Equal(t, tt.want.Domain, got.Domain)
		})
	}
}

func TestResolveRedirect(t *testing.T) {
	assert.Equal(t, "https://ledgerline.io/",
		resolveRedirect("//duckduckgo.com/l/?uddg=https%3A%2F%2Fledgerline.io%2F"))
	assert.Equal(t, "https://acme.io", resolveRedirect("https://acme.io"))
}
