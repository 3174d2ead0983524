package score

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/ma-discovery/internal/model"
)

// defaultScoreWorkers bounds concurrent scoring in ScoreAndRank.
const defaultScoreWorkers = 8

// Scorer scores enriched companies against acquisition criteria and ranks
// them by fit. Scoring is deterministic: the same company and criteria
// always produce the same result.
type Scorer struct {
	filters   *HardFilters
	extractor *EvidenceExtractor
	vertical  VerticalClassifier
	workers   int
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithVerticalClassifier installs a priority-vertical classifier. When the
// detected vertical appears in the criteria's included industries, the
// industry category score is raised to at least the classifier confidence.
func WithVerticalClassifier(vc VerticalClassifier) Option {
	return func(s *Scorer) { s.vertical = vc }
}

// WithWorkers sets the concurrency limit for ScoreAndRank.
func WithWorkers(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewScorer creates a Scorer with the given options.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		filters:   NewHardFilters(),
		extractor: NewEvidenceExtractor(),
		workers:   defaultScoreWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score scores a single company against the criteria. Companies with
// disqualification reasons keep their breakdown and evidence but have the
// fit score forced to zero.
func (s *Scorer) Score(company *model.EnrichedCompany, criteria *model.AcquisitionCriteria) *model.ScoredCompany {
	filterResult := s.filters.Apply(company, criteria)
	evidence := s.extractor.Extract(company, criteria)

	var vertical string
	var verticalConf float64
	if s.vertical != nil {
		vertical, verticalConf = s.vertical.Classify(company)
	}

	breakdown := s.scoreCategories(company, criteria, evidence, vertical, verticalConf)
	fitScore := fitScore(breakdown, criteria)
	confidence := scoreConfidence(company, evidence)
	summary := matchSummary(company, criteria, breakdown, vertical, verticalConf)

	scored := &model.ScoredCompany{
		EnrichedCompany:         *company,
		FitScore:                fitScore,
		Confidence:              confidence,
		PassedFilters:           filterResult.Passed,
		FailedFilters:           filterResult.FailedFilters,
		IsDisqualified:          filterResult.IsDisqualified,
		DisqualificationReasons: filterResult.DisqualificationReasons,
		Evidence:                evidence,
		MatchSummary:            summary,
		ScoreBreakdown:          breakdown,
	}

	if scored.IsDisqualified {
		scored.FitScore = 0
	}
	return scored
}

// ScoreAndRank scores all companies concurrently and returns them ranked
// by fit score descending, with confidence breaking ties. Ranks are
// contiguous starting at 1. Input order never affects the result beyond
// preserving relative order of exact ties.
func (s *Scorer) ScoreAndRank(ctx context.Context, companies []*model.EnrichedCompany, criteria *model.AcquisitionCriteria) ([]model.ScoredCompany, error) {
	scored := make([]model.ScoredCompany, len(companies))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, company := range companies {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return eris.Wrap(err, "score: cancelled")
			}
			scored[i] = *s.Score(company, criteria)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].FitScore != scored[j].FitScore {
			return scored[i].FitScore > scored[j].FitScore
		}
		return scored[i].Confidence > scored[j].Confidence
	})
	for i := range scored {
		scored[i].Rank = i + 1
	}

	zap.L().Info("score: ranked companies",
		zap.Int("companies", len(scored)),
		zap.Int("qualified", countQualified(scored)),
	)
	return scored, nil
}

// scoreCategories computes the per-category scores, each in [0, 1].
func (s *Scorer) scoreCategories(company *model.EnrichedCompany, criteria *model.AcquisitionCriteria, evidence []model.Evidence, vertical string, verticalConf float64) map[string]float64 {
	industryScore := scoreIndustry(company, criteria)
	if vertical != "" && verticalConf > industryScore && verticalReferenced(vertical, criteria.IndustriesInclude) {
		industryScore = verticalConf
	}

	bmScore := scoreBusinessModel(company, criteria)
	if company.SoftwareRevenueConfidence > 0.5 && company.SoftwareRevenueConfidence > bmScore {
		bmScore = company.SoftwareRevenueConfidence
	}

	return map[string]float64{
		"industry":       industryScore,
		"keyword":        scoreKeywords(criteria, evidence),
		"business_model": bmScore,
		"customer_type":  scoreCustomerType(company, criteria),
		"geography":      scoreGeography(company, criteria),
		"size":           scoreSize(company, criteria),
		"compliance":     scoreCompliance(company, criteria),
		"signals":        scoreSignals(company, criteria),
	}
}

// verticalReferenced reports whether the vertical name appears inside any
// included industry, case-insensitively.
func verticalReferenced(vertical string, industries []string) bool {
	v := strings.ToLower(vertical)
	for _, industry := range industries {
		if strings.Contains(strings.ToLower(industry), v) {
			return true
		}
	}
	return false
}

// scoreIndustry returns the fraction of included industries the company
// matches, capped at 1. An empty requirement is vacuously satisfied.
func scoreIndustry(company *model.EnrichedCompany, criteria *model.AcquisitionCriteria) float64 {
	if len(criteria.IndustriesInclude) == 0 {
		return 1.0
	}
	if len(company.Industries) == 0 {
		return 0.0
	}

	var matches int
	for _, industry := range company.Industries {
		if containsFold(criteria.IndustriesInclude, industry) {
			matches++
		}
	}
	return capAtOne(float64(matches) / float64(len(criteria.IndustriesInclude)))
}

// scoreKeywords returns the fraction of included keywords with supporting
// evidence, capped at 1.
func scoreKeywords(criteria *model.AcquisitionCriteria, evidence []model.Evidence) float64 {
	if len(criteria.KeywordsInclude) == 0 {
		return 1.0
	}

	matched := make(map[string]bool)
	for _, ev := range evidence {
		if strings.HasPrefix(ev.Criterion, "keyword:") {
			matched[ev.Criterion] = true
		}
	}
	return capAtOne(float64(len(matched)) / float64(len(criteria.KeywordsInclude)))
}

// scoreBusinessModel returns the business model confidence when the model
// matches a required type, zero when it doesn't, and 1 when no types are
// required.
func scoreBusinessModel(company *model.EnrichedCompany, criteria *model.AcquisitionCriteria) float64 {
	if len(criteria.BusinessModel.Types) == 0 {
		return 1.0
	}
	if company.BusinessModel == "" {
		return 0.0
	}
	if containsFold(criteria.BusinessModel.Types, company.BusinessModel) {
		return company.BusinessModelConfidence
	}
	return 0.0
}

func scoreCustomerType(company *model.EnrichedCompany, criteria *model.AcquisitionCriteria) float64 {
	if len(criteria.CustomerType) == 0 {
		return 1.0
	}
	if len(company.CustomerTypes) == 0 {
		return 0.0
	}

	var matches int
	for _, ct := range company.CustomerTypes {
		if contains(criteria.CustomerType, ct) {
			matches++
		}
	}
	return capAtOne(float64(matches) / float64(len(criteria.CustomerType)))
}

// scoreGeography returns 1 for a headquarters match, 0 for a miss, and 0.5
// when the headquarters is unknown.
func scoreGeography(company *model.EnrichedCompany, criteria *model.AcquisitionCriteria) float64 {
	geo := criteria.Geography
	if len(geo.Countries) == 0 && len(geo.Regions) == 0 {
		return 1.0
	}
	if company.Headquarters == "" {
		return 0.5
	}

	location := strings.ToLower(company.Headquarters)
	if len(geo.Countries) > 0 {
		for _, country := range geo.Countries {
			if strings.Contains(location, strings.ToLower(country)) {
				return 1.0
			}
		}
		return 0.0
	}
	for _, region := range geo.Regions {
		if strings.Contains(location, strings.ToLower(region)) {
			return 1.0
		}
	}
	return 0.0
}

// scoreSize averages one sub-score per configured size dimension: 1 when
// the value lies in the inclusive range, 0 when outside, 0.5 when unknown.
func scoreSize(company *model.EnrichedCompany, criteria *model.AcquisitionCriteria) float64 {
	size := criteria.Size
	var scores []float64

	if size.EmployeesMin != nil || size.EmployeesMax != nil {
		if company.EmployeesEstimate != nil {
			employees := *company.EmployeesEstimate
			inRange := (size.EmployeesMin == nil || employees >= *size.EmployeesMin) &&
				(size.EmployeesMax == nil || employees <= *size.EmployeesMax)
			scores = append(scores, boolScore(inRange))
		} else {
			scores = append(scores, 0.5)
		}
	}

	if size.RevenueMin != nil || size.RevenueMax != nil {
		if company.RevenueEstimate != nil {
			revenue := *company.RevenueEstimate
			inRange := (size.RevenueMin == nil || revenue >= *size.RevenueMin) &&
				(size.RevenueMax == nil || revenue <= *size.RevenueMax)
			scores = append(scores, boolScore(inRange))
		} else {
			scores = append(scores, 0.5)
		}
	}

	if size.FundingMin != nil || size.FundingMax != nil {
		if company.FundingTotal != nil {
			funding := *company.FundingTotal
			inRange := (size.FundingMin == nil || funding >= *size.FundingMin) &&
				(size.FundingMax == nil || funding <= *size.FundingMax)
			scores = append(scores, boolScore(inRange))
		} else {
			scores = append(scores, 0.5)
		}
	}

	if len(scores) == 0 {
		return 1.0
	}
	var sum float64
	for _, v := range scores {
		sum += v
	}
	return sum / float64(len(scores))
}

func scoreCompliance(company *model.EnrichedCompany, criteria *model.AcquisitionCriteria) float64 {
	if len(criteria.ComplianceTags) == 0 {
		return 1.0
	}
	if len(company.ComplianceIndicators) == 0 {
		return 0.0
	}

	var matches int
	for _, tag := range criteria.ComplianceTags {
		if contains(company.ComplianceIndicators, tag) {
			matches++
		}
	}
	return float64(matches) / float64(len(criteria.ComplianceTags))
}

func scoreSignals(company *model.EnrichedCompany, criteria *model.AcquisitionCriteria) float64 {
	if len(criteria.PreferredSignals) == 0 {
		return 1.0
	}
	if len(company.SignalsDetected) == 0 {
		return 0.0
	}

	var matches int
	for _, signal := range criteria.PreferredSignals {
		if contains(company.SignalsDetected, signal) {
			matches++
		}
	}
	return float64(matches) / float64(len(criteria.PreferredSignals))
}

// fitScore computes the weighted category average on a 0-100 scale.
// Weights come from the criteria, falling back to defaults, and the sum
// renormalizes so partial weight maps still span the full scale.
func fitScore(breakdown map[string]float64, criteria *model.AcquisitionCriteria) float64 {
	var totalWeight, weightedSum float64
	for category, score := range breakdown {
		def, ok := model.DefaultWeights[category]
		if !ok {
			def = 0.5
		}
		weight := criteria.Weight(category, def)
		weightedSum += score * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}
	return (weightedSum / totalWeight) * 100
}

// scoreConfidence estimates how trustworthy the fit score is from data
// completeness and evidence coverage.
func scoreConfidence(company *model.EnrichedCompany, evidence []model.Evidence) float64 {
	var factors []float64

	var present int
	if company.BusinessModel != "" {
		present++
	}
	if len(company.CustomerTypes) > 0 {
		present++
	}
	if len(company.Industries) > 0 {
		present++
	}
	if company.EmployeesEstimate != nil {
		present++
	}
	if company.Headquarters != "" {
		present++
	}
	factors = append(factors, float64(present)/5)

	if len(evidence) > 0 {
		var sum float64
		for _, ev := range evidence {
			sum += ev.Confidence
		}
		factors = append(factors, sum/float64(len(evidence)))
	} else {
		factors = append(factors, 0.3)
	}

	if company.BusinessModel != "" {
		factors = append(factors, company.BusinessModelConfidence)
	}
	if company.ExtractionConfidence > 0 {
		factors = append(factors, company.ExtractionConfidence)
	}

	var sum float64
	for _, f := range factors {
		sum += f
	}
	return sum / float64(len(factors))
}

// matchSummary builds up to seven human-readable bullets explaining the
// match, strongest signals first.
func matchSummary(company *model.EnrichedCompany, criteria *model.AcquisitionCriteria, breakdown map[string]float64, vertical string, verticalConf float64) []string {
	var summary []string

	verticalHighlight := vertical != "" && verticalConf > 0
	if verticalHighlight {
		summary = append(summary, fmt.Sprintf("%s (%d%% confidence)", strings.ToUpper(vertical), int(verticalConf*100)))
	}

	if company.RevenueEstimate != nil {
		millions := float64(*company.RevenueEstimate) / 1_000_000
		if company.RevenueIsEstimate {
			summary = append(summary, fmt.Sprintf("Estimated ARR: $%.0fM (from employee count)", millions))
		} else {
			summary = append(summary, fmt.Sprintf("ARR: $%.0fM", millions))
		}
	}

	if company.SoftwareRevenueConfidence > 0.3 {
		summary = append(summary, fmt.Sprintf("Software revenue indicators: %d%% confidence", int(company.SoftwareRevenueConfidence*100)))
	}

	if company.BusinessModel != "" && breakdown["business_model"] > 0.5 {
		summary = append(summary, fmt.Sprintf("%s business model", company.BusinessModel))
	}

	var matchedIndustries []string
	for _, industry := range company.Industries {
		if containsFold(criteria.IndustriesInclude, industry) {
			matchedIndustries = append(matchedIndustries, industry)
		}
	}
	if len(matchedIndustries) > 0 && !verticalHighlight {
		if len(matchedIndustries) > 3 {
			matchedIndustries = matchedIndustries[:3]
		}
		summary = append(summary, fmt.Sprintf("Industry: %s", strings.Join(matchedIndustries, ", ")))
	}

	if company.EmployeesEstimate != nil {
		summary = append(summary, fmt.Sprintf("Team size: ~%d employees", *company.EmployeesEstimate))
	}

	var matchedCustomers []string
	for _, ct := range company.CustomerTypes {
		if contains(criteria.CustomerType, ct) {
			matchedCustomers = append(matchedCustomers, ct)
		}
	}
	if len(matchedCustomers) > 0 {
		summary = append(summary, fmt.Sprintf("Customer focus: %s", strings.Join(matchedCustomers, ", ")))
	}

	var matchedSignals []string
	for _, signal := range company.SignalsDetected {
		if contains(criteria.PreferredSignals, signal) {
			matchedSignals = append(matchedSignals, strings.ReplaceAll(signal, "_", " "))
		}
	}
	if len(matchedSignals) > 0 {
		if len(matchedSignals) > 3 {
			matchedSignals = matchedSignals[:3]
		}
		summary = append(summary, fmt.Sprintf("Signals: %s", strings.Join(matchedSignals, ", ")))
	}

	if len(summary) == 0 {
		summary = append(summary, "Limited match data available")
	}
	if len(summary) > 7 {
		summary = summary[:7]
	}
	return summary
}

func capAtOne(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}

func boolScore(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

func countQualified(scored []model.ScoredCompany) int {
	var n int
	for _, c := range scored {
		if c.PassedFilters {
			n++
		}
	}
	return n
}
