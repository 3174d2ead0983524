// Package enrich turns discovered candidates into enriched company
// profiles by crawling their sites and extracting structured facts.
package enrich

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/ma-discovery/internal/crawl"
	"github.com/sells-group/ma-discovery/internal/model"
)

const defaultEnrichWorkers = 4

// defaultLLMThreshold is the rule-based confidence below which the LLM
// parser is consulted.
const defaultLLMThreshold = 0.6

// revenuePerEmployee is the headcount multiplier used when no revenue
// figure was found on the site. Estimates carry RevenueIsEstimate.
const revenuePerEmployee = 150_000

// defaultPagePaths are fetched under each company's website, in order.
// The empty path is the homepage.
var defaultPagePaths = []string{"", "about", "product", "pricing", "careers"}

var recurringRevenueRe = regexp.MustCompile(`(?i)\b(arr|mrr|recurring revenue|subscription revenue)\b`)

// PageFetcher fetches a set of pages under a base URL.
type PageFetcher interface {
	FetchPages(ctx context.Context, baseURL string, paths []string) []*crawl.FetchResult
}

// Enricher crawls candidate websites, extracts page text, and runs the
// rule-based parser, LLM fallback, and classifier over the combined
// content. A candidate that cannot be enriched is carried through with
// minimal data rather than failing the batch.
type Enricher struct {
	fetcher    PageFetcher
	extractor  *crawl.ContentExtractor
	parser     *RuleBasedParser
	classifier *BusinessClassifier
	llm        *LLMParser

	workers      int
	pagePaths    []string
	llmThreshold float64
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher)

// WithLLMParser enables the LLM extraction fallback.
func WithLLMParser(p *LLMParser) EnricherOption {
	return func(e *Enricher) { e.llm = p }
}

// WithEnrichWorkers sets how many candidates are enriched concurrently.
func WithEnrichWorkers(n int) EnricherOption {
	return func(e *Enricher) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithPagePaths overrides the site paths fetched per candidate.
func WithPagePaths(paths []string) EnricherOption {
	return func(e *Enricher) {
		if len(paths) > 0 {
			e.pagePaths = paths
		}
	}
}

// WithLLMThreshold sets the rule-based confidence below which the LLM
// parser runs.
func WithLLMThreshold(threshold float64) EnricherOption {
	return func(e *Enricher) { e.llmThreshold = threshold }
}

// NewEnricher creates an Enricher crawling through fetcher.
func NewEnricher(fetcher PageFetcher, opts ...EnricherOption) *Enricher {
	e := &Enricher{
		fetcher:      fetcher,
		extractor:    crawl.NewContentExtractor(),
		parser:       NewRuleBasedParser(),
		classifier:   NewBusinessClassifier(),
		workers:      defaultEnrichWorkers,
		pagePaths:    defaultPagePaths,
		llmThreshold: defaultLLMThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnrichAll enriches candidates concurrently, preserving input order.
// Individual failures degrade to minimal enrichment; only context
// cancellation aborts the batch.
func (e *Enricher) EnrichAll(ctx context.Context, candidates []*model.CandidateCompany, criteria *model.AcquisitionCriteria) ([]*model.EnrichedCompany, error) {
	enriched := make([]*model.EnrichedCompany, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, candidate := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			enriched[i] = e.Enrich(ctx, candidate, criteria)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Info("enrich: batch complete",
		zap.Int("candidates", len(candidates)),
	)
	return enriched, nil
}

// Enrich builds an enriched profile for one candidate. It never returns
// nil: when crawling or extraction fails the result carries only the
// candidate's discovery data.
func (e *Enricher) Enrich(ctx context.Context, candidate *model.CandidateCompany, criteria *model.AcquisitionCriteria) *model.EnrichedCompany {
	company := &model.EnrichedCompany{CandidateCompany: *candidate}
	company.Headquarters = candidate.Location
	company.EmployeesEstimate = candidate.EmployeeCount

	website := candidate.Website
	if website == "" && candidate.Domain != "" {
		website = "https://" + candidate.Domain
	}
	if website == "" {
		zap.L().Warn("enrich: candidate has no website",
			zap.String("company", candidate.Name),
		)
		markEnriched(company, nil)
		return company
	}

	e.crawlPages(ctx, company, website)
	combined := strings.Join(company.PagesInOrder(), "\n\n")
	if combined == "" {
		zap.L().Warn("enrich: no page content",
			zap.String("company", candidate.Name),
			zap.String("website", website),
		)
		markEnriched(company, nil)
		return company
	}

	parsed := e.parser.Parse(combined)

	var llmResult *LLMExtraction
	if e.llm.Available() && parsed.OverallConfidence < e.llmThreshold {
		var err error
		llmResult, err = e.llm.Parse(ctx, candidate.Name, website, combined)
		if err != nil {
			zap.L().Warn("enrich: llm extraction failed",
				zap.String("company", candidate.Name),
				zap.Error(err),
			)
		}
	}

	merged := Merge(parsed, llmResult)
	applyExtraction(company, &merged, combined)

	classified := e.classifier.Classify(combined, criteria, &merged)
	company.Industries = unionOrdered(classified.Industries, merged.Industries)
	company.DisqualifiersDetected = classified.DisqualifiersDetected

	markEnriched(company, llmResult)
	return company
}

func (e *Enricher) crawlPages(ctx context.Context, company *model.EnrichedCompany, website string) {
	results := e.fetcher.FetchPages(ctx, website, e.pagePaths)
	for _, res := range results {
		if !res.Success() {
			continue
		}
		text := e.extractor.Extract(res.Content, res.URL)
		if text == "" {
			continue
		}
		company.AddPage(res.URL, text)
	}
}

// applyExtraction copies merged extraction facts onto the company and
// fills derived values.
func applyExtraction(company *model.EnrichedCompany, merged *ExtractionResult, text string) {
	company.BusinessModel = merged.BusinessModel
	company.BusinessModelConfidence = merged.BusinessModelConfidence
	company.CustomerTypes = merged.CustomerTypes
	company.ComplianceIndicators = merged.ComplianceIndicators
	company.SignalsDetected = merged.Signals
	company.ExtractionConfidence = merged.OverallConfidence

	if merged.EmployeeCount != nil {
		company.EmployeesEstimate = merged.EmployeeCount
	}
	if merged.RevenueEstimate != nil {
		company.RevenueEstimate = merged.RevenueEstimate
	}
	if merged.FundingTotal != nil {
		company.FundingTotal = merged.FundingTotal
	}

	if company.RevenueEstimate == nil && company.EmployeesEstimate != nil && *company.EmployeesEstimate > 0 {
		estimate := int64(*company.EmployeesEstimate) * revenuePerEmployee
		company.RevenueEstimate = &estimate
		company.RevenueIsEstimate = true
	}

	company.SoftwareRevenueConfidence = softwareRevenueConfidence(merged, text)
}

// softwareRevenueConfidence scores how likely revenue is software-driven.
// Recurring business models carry their extraction confidence; explicit
// ARR or MRR language on the site sets a floor of 0.7.
func softwareRevenueConfidence(merged *ExtractionResult, text string) float64 {
	var confidence float64
	switch merged.BusinessModel {
	case "SaaS", "subscription":
		confidence = merged.BusinessModelConfidence
	}
	if recurringRevenueRe.MatchString(text) && confidence < 0.7 {
		confidence = 0.7
	}
	return confidence
}

func markEnriched(company *model.EnrichedCompany, llmResult *LLMExtraction) {
	now := time.Now().UTC()
	company.EnrichedAt = &now
	if len(company.PageContents) > 0 {
		company.EnrichmentSources = append(company.EnrichmentSources, "website")
	}
	if llmResult != nil {
		company.EnrichmentSources = append(company.EnrichmentSources, "llm")
	}
}
