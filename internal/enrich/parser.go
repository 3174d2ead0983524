package enrich

import (
	"regexp"
	"strconv"
	"strings"
)

// ExtractionResult is the structured data pulled from a company's pages.
// Fields left at their zero value were not found.
type ExtractionResult struct {
	BusinessModel           string            `json:"business_model,omitempty"`
	BusinessModelConfidence float64           `json:"business_model_confidence"`
	CustomerTypes           []string          `json:"customer_types,omitempty"`
	EmployeeCount           *int              `json:"employee_count,omitempty"`
	RevenueEstimate         *int64            `json:"revenue_estimate,omitempty"`
	FundingTotal            *int64            `json:"funding_total,omitempty"`
	Industries              []string          `json:"industries,omitempty"`
	ComplianceIndicators    []string          `json:"compliance_indicators,omitempty"`
	Signals                 []string          `json:"signals,omitempty"`
	PotentialConcerns       []string          `json:"potential_concerns,omitempty"`
	Evidence                map[string]string `json:"evidence,omitempty"`
	OverallConfidence       float64           `json:"overall_confidence"`
}

// patternSet is an ordered list of labelled regex groups. Order matters:
// iteration over parallel slices keeps extraction deterministic where a
// map would not.
type patternSet struct {
	labels   []string
	patterns [][]*regexp.Regexp
}

func newPatternSet(entries []patternEntry) patternSet {
	ps := patternSet{}
	for _, e := range entries {
		compiled := make([]*regexp.Regexp, len(e.patterns))
		for i, p := range e.patterns {
			compiled[i] = regexp.MustCompile(p)
		}
		ps.labels = append(ps.labels, e.label)
		ps.patterns = append(ps.patterns, compiled)
	}
	return ps
}

type patternEntry struct {
	label    string
	patterns []string
}

var businessModelPatterns = newPatternSet([]patternEntry{
	{"SaaS", []string{
		`\b(saas|software.as.a.service)\b`,
		`\b(subscription|recurring.revenue|monthly.plan)\b`,
		`\b(cloud.based|cloud.platform|cloud.software)\b`,
	}},
	{"marketplace", []string{
		`\b(marketplace|two.?sided|platform.connecting)\b`,
		`\b(buyers?.and.sellers?|connect.+with)\b`,
	}},
	{"services", []string{
		`\b(consulting|professional.services|agency)\b`,
		`\b(managed.services|service.provider)\b`,
	}},
	{"hardware", []string{
		`\b(hardware|device|physical.product)\b`,
		`\b(manufacturing|iot.device)\b`,
	}},
	{"e-commerce", []string{
		`\b(e.?commerce|online.store|shop)\b`,
		`\b(retail|direct.to.consumer|d2c)\b`,
	}},
})

var customerTypePatterns = newPatternSet([]patternEntry{
	{"B2B", []string{
		`\b(b2b|business.to.business|enterprise)\b`,
		`\b(for.businesses|business.customers)\b`,
	}},
	{"B2C", []string{
		`\b(b2c|business.to.consumer|consumer)\b`,
		`\b(for.individuals|personal.use)\b`,
	}},
	{"enterprise", []string{
		`\b(enterprise|large.organizations?|fortune.500)\b`,
		`\b(enterprise.grade|enterprise.ready)\b`,
	}},
	{"SMB", []string{
		`\b(smb|small.business|medium.business)\b`,
		`\b(small.and.medium|growing.businesses)\b`,
	}},
})

var employeePatterns = compileAll([]string{
	`(\d+)\+?\s*employees`,
	`team\s*of\s*(\d+)`,
	`(\d+)\s*team\s*members`,
	`staff\s*of\s*(\d+)`,
})

// Amounts are in millions of dollars. Text is lowercased before matching.
var revenuePatterns = compileAll([]string{
	`\$(\d+(?:\.\d+)?)\s*(?:m|million)\s*(?:arr|revenue|mrr)`,
	`\$(\d+(?:\.\d+)?)\s+million\s+(?:arr|revenue|mrr)`,
	`(\d+(?:\.\d+)?)\s*million\s*(?:in\s*)?revenue`,
	`arr\s*(?:of\s*)?\$?(\d+(?:\.\d+)?)\s*(?:m|million)`,
})

var fundingPatterns = compileAll([]string{
	`raised\s*\$?(\d+(?:\.\d+)?)\s*(?:m|million)`,
	`\$(\d+(?:\.\d+)?)\s*(?:m|million)\s*(?:in\s*)?funding`,
	`series\s*[a-d]\s*(?:of\s*)?\$?(\d+(?:\.\d+)?)\s*(?:m|million)`,
})

var compliancePatterns = newPatternSet([]patternEntry{
	{"SOC2", []string{`\bsoc\s*2\b`, `\bsoc2\b`, `\bsoc.ii\b`}},
	{"HIPAA", []string{`\bhipaa\b`, `\bhipaa.compliant\b`}},
	{"GDPR", []string{`\bgdpr\b`, `\bgdpr.compliant\b`}},
	{"ISO27001", []string{`\biso.?27001\b`, `\biso.27001\b`}},
	{"PCI-DSS", []string{`\bpci.?dss\b`, `\bpci.compliant\b`}},
	{"FedRAMP", []string{`\bfedramp\b`}},
})

var signalPatterns = newPatternSet([]patternEntry{
	{"growing_team", []string{`we.?re.hiring`, `join.our.team`, `open.positions`}},
	{"recent_funding", []string{`recently.raised`, `just.raised`, `announced.funding`}},
	{"product_launch", []string{`just.launched`, `now.available`, `introducing`}},
	{"customer_growth", []string{`serving.(\d+).customers`, `trusted.by.(\d+)`}},
})

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// RuleBasedParser extracts structured company data from page text using
// regex and keyword patterns.
type RuleBasedParser struct{}

// NewRuleBasedParser creates a RuleBasedParser.
func NewRuleBasedParser() *RuleBasedParser {
	return &RuleBasedParser{}
}

// Parse extracts structured data from text. Lowercasing happens here, so
// callers pass raw extracted page text.
func (p *RuleBasedParser) Parse(text string) ExtractionResult {
	lower := strings.ToLower(text)
	result := ExtractionResult{Evidence: make(map[string]string)}

	// Business model: most pattern hits wins, confidence from hit count.
	var bestModel string
	var bestScore int
	for i, label := range businessModelPatterns.labels {
		var score int
		for _, re := range businessModelPatterns.patterns[i] {
			score += len(re.FindAllString(lower, -1))
		}
		if score > bestScore {
			bestModel = label
			bestScore = score
		}
	}
	if bestScore > 0 {
		result.BusinessModel = bestModel
		result.BusinessModelConfidence = minFloat(float64(bestScore)/3.0, 1.0)
	}

	for i, label := range customerTypePatterns.labels {
		if anyMatch(customerTypePatterns.patterns[i], lower) {
			result.CustomerTypes = append(result.CustomerTypes, label)
		}
	}

	for _, re := range employeePatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				result.EmployeeCount = &n
				result.Evidence["employee_count"] = m[0]
				break
			}
		}
	}

	if amount, raw, ok := firstDollarAmount(revenuePatterns, lower); ok {
		result.RevenueEstimate = &amount
		result.Evidence["revenue"] = raw
	}
	if amount, raw, ok := firstDollarAmount(fundingPatterns, lower); ok {
		result.FundingTotal = &amount
		result.Evidence["funding"] = raw
	}

	for i, label := range compliancePatterns.labels {
		if anyMatch(compliancePatterns.patterns[i], lower) {
			result.ComplianceIndicators = append(result.ComplianceIndicators, label)
		}
	}

	for i, label := range signalPatterns.labels {
		if anyMatch(signalPatterns.patterns[i], lower) {
			result.Signals = append(result.Signals, label)
		}
	}

	result.OverallConfidence = overallConfidence(&result)
	return result
}

// ExtractKeywords returns the industry keywords found whole-word in text.
func (p *RuleBasedParser) ExtractKeywords(text string, keywords []string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, keyword := range keywords {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(keyword)) + `\b`)
		if re.MatchString(lower) {
			found = append(found, keyword)
		}
	}
	return found
}

// firstDollarAmount applies the patterns in order and converts the first
// captured millions figure to whole dollars.
func firstDollarAmount(patterns []*regexp.Regexp, text string) (int64, string, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			millions, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			return int64(millions * 1_000_000), m[0], true
		}
	}
	return 0, "", false
}

// overallConfidence weighs which kinds of data were found. Business model
// carries the most signal, customer type next, the rest fill in.
func overallConfidence(r *ExtractionResult) float64 {
	var confidence float64
	if r.BusinessModel != "" {
		confidence += 0.3
	}
	if len(r.CustomerTypes) > 0 {
		confidence += 0.2
	}
	if r.EmployeeCount != nil {
		confidence += 0.15
	}
	if r.RevenueEstimate != nil || r.FundingTotal != nil {
		confidence += 0.15
	}
	if len(r.ComplianceIndicators) > 0 {
		confidence += 0.1
	}
	if len(r.Signals) > 0 {
		confidence += 0.1
	}
	return confidence
}

func anyMatch(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
