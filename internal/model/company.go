package model

import "time"

// ExtractionMethod identifies how a piece of evidence was extracted.
type ExtractionMethod string

const (
	ExtractionRegex   ExtractionMethod = "regex"
	ExtractionKeyword ExtractionMethod = "keyword"
	ExtractionLLM     ExtractionMethod = "llm"
)

// Evidence is a text excerpt supporting a specific criterion match.
// Evidence is derived, never stored as a source of truth; it is always
// recomputed from company data and criteria.
type Evidence struct {
	Criterion        string           `json:"criterion"`
	Snippet          string           `json:"snippet"`
	SourceURL        string           `json:"source_url"`
	Confidence       float64          `json:"confidence"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
}

// CandidateCompany is a company discovered by a source connector.
type CandidateCompany struct {
	Name         string    `json:"name"`
	Domain       string    `json:"domain,omitempty"`
	Website      string    `json:"website,omitempty"`
	Description  string    `json:"description,omitempty"`
	Source       string    `json:"source"`
	SourceURL    string    `json:"source_url,omitempty"`
	DiscoveredAt time.Time `json:"discovered_at"`

	Industry      string `json:"industry,omitempty"`
	Location      string `json:"location,omitempty"`
	EmployeeCount *int   `json:"employee_count,omitempty"`
}

// EnrichedCompany is a candidate enriched with scraped and classified data.
// The scoring core treats it as read-only.
type EnrichedCompany struct {
	CandidateCompany

	EnrichedAt        *time.Time `json:"enriched_at,omitempty"`
	EnrichmentSources []string   `json:"enrichment_sources,omitempty"`

	FoundedYear       *int   `json:"founded_year,omitempty"`
	Headquarters      string `json:"headquarters,omitempty"`
	EmployeesEstimate *int   `json:"employees_estimate,omitempty"`
	RevenueEstimate   *int64 `json:"revenue_estimate,omitempty"`
	RevenueIsEstimate bool   `json:"revenue_is_estimate,omitempty"`
	FundingTotal      *int64 `json:"funding_total,omitempty"`

	BusinessModel           string   `json:"business_model,omitempty"`
	BusinessModelConfidence float64  `json:"business_model_confidence"`
	CustomerTypes           []string `json:"customer_types,omitempty"`
	Industries              []string `json:"industries,omitempty"`

	ComplianceIndicators  []string `json:"compliance_indicators,omitempty"`
	SignalsDetected       []string `json:"signals_detected,omitempty"`
	DisqualifiersDetected []string `json:"disqualifiers_detected,omitempty"`

	// SoftwareRevenueConfidence is an upstream heuristic signal that the
	// company's revenue is software-driven. Values above 0.5 can boost
	// the business model category score.
	SoftwareRevenueConfidence float64 `json:"software_revenue_confidence,omitempty"`

	// PageContents maps source URL to extracted text. PageOrder preserves
	// insertion order, which the evidence extractor depends on.
	PageContents map[string]string `json:"page_contents,omitempty"`
	PageOrder    []string          `json:"page_order,omitempty"`

	ExtractionConfidence float64 `json:"extraction_confidence"`
}

// AddPage records extracted page text, preserving insertion order.
func (c *EnrichedCompany) AddPage(url, text string) {
	if c.PageContents == nil {
		c.PageContents = make(map[string]string)
	}
	if _, exists := c.PageContents[url]; !exists {
		c.PageOrder = append(c.PageOrder, url)
	}
	c.PageContents[url] = text
}

// PagesInOrder returns page texts in insertion order. URLs present in
// PageContents but missing from PageOrder are appended at the end so no
// text is silently dropped.
func (c *EnrichedCompany) PagesInOrder() []string {
	seen := make(map[string]bool, len(c.PageOrder))
	texts := make([]string, 0, len(c.PageContents))
	for _, url := range c.PageOrder {
		if text, ok := c.PageContents[url]; ok && !seen[url] {
			texts = append(texts, text)
			seen[url] = true
		}
	}
	if len(seen) < len(c.PageContents) {
		for url, text := range c.PageContents {
			if !seen[url] {
				texts = append(texts, text)
			}
		}
	}
	return texts
}

// ScoredCompany is an enriched company with fit scoring results attached.
type ScoredCompany struct {
	EnrichedCompany

	FitScore   float64 `json:"fit_score"`
	Confidence float64 `json:"confidence"`
	Rank       int     `json:"rank,omitempty"`

	PassedFilters           bool     `json:"passed_filters"`
	FailedFilters           []string `json:"failed_filters,omitempty"`
	IsDisqualified          bool     `json:"is_disqualified"`
	DisqualificationReasons []string `json:"disqualification_reasons,omitempty"`

	Evidence     []Evidence `json:"evidence,omitempty"`
	MatchSummary []string   `json:"match_summary,omitempty"`

	ScoreBreakdown map[string]float64 `json:"score_breakdown,omitempty"`
}
