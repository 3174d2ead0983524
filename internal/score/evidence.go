package score

import (
	"regexp"
	"strings"

	"github.com/sells-group/ma-discovery/internal/model"
)

// maxSnippetLength caps evidence snippets before the trailing ellipsis.
const maxSnippetLength = 200

// snippetWindow is the number of characters kept on each side of a match.
const snippetWindow = 80

// businessModelKeywords maps each business model to the phrases that
// commonly signal it in page text.
var businessModelKeywords = map[string][]string{
	"SaaS":        {"subscription", "monthly", "cloud", "saas", "software as a service"},
	"marketplace": {"marketplace", "platform", "connect", "buyers", "sellers"},
	"services":    {"consulting", "services", "agency", "professional"},
	"hardware":    {"device", "hardware", "physical", "manufacturing"},
	"e-commerce":  {"shop", "store", "buy", "commerce", "retail"},
}

var customerTypeKeywords = map[string][]string{
	"B2B":        {"business", "enterprise", "company", "organization", "b2b"},
	"B2C":        {"consumer", "individual", "personal", "b2c"},
	"enterprise": {"enterprise", "fortune 500", "large organization"},
	"SMB":        {"small business", "smb", "growing business"},
}

var signalKeywords = map[string][]string{
	"growing_team":    {"hiring", "join our team", "careers", "open positions"},
	"recent_funding":  {"raised", "funding", "series", "investment"},
	"product_launch":  {"launched", "announcing", "introducing", "new product"},
	"customer_growth": {"customers", "users", "clients", "trusted by"},
}

// EvidenceExtractor finds text snippets in a company's crawled pages that
// support specific criterion matches. Extraction is pure: it never
// modifies the company and produces the same output for the same input.
type EvidenceExtractor struct{}

// NewEvidenceExtractor creates an EvidenceExtractor.
func NewEvidenceExtractor() *EvidenceExtractor {
	return &EvidenceExtractor{}
}

// Extract returns evidence for every criterion category that matches the
// company. A company with no page content yields no evidence and no error.
func (e *EvidenceExtractor) Extract(company *model.EnrichedCompany, criteria *model.AcquisitionCriteria) []model.Evidence {
	content := strings.Join(company.PagesInOrder(), "\n")

	var evidence []model.Evidence
	evidence = append(evidence, e.industryEvidence(company, criteria, content)...)
	evidence = append(evidence, e.keywordEvidence(company, criteria, content)...)
	evidence = append(evidence, e.businessModelEvidence(company, criteria, content)...)
	evidence = append(evidence, e.customerTypeEvidence(company, criteria, content)...)
	evidence = append(evidence, e.complianceEvidence(company, criteria, content)...)
	evidence = append(evidence, e.signalEvidence(company, criteria, content)...)
	return evidence
}

func (e *EvidenceExtractor) industryEvidence(company *model.EnrichedCompany, criteria *model.AcquisitionCriteria, content string) []model.Evidence {
	var evidence []model.Evidence
	for _, industry := range criteria.IndustriesInclude {
		if !containsFold(company.Industries, industry) {
			continue
		}
		if ev, ok := e.buildEvidence(company, content, "industry:"+industry, industry, 0.8); ok {
			evidence = append(evidence, ev)
		}
	}
	return evidence
}

func (e *EvidenceExtractor) keywordEvidence(company *model.EnrichedCompany, criteria *model.AcquisitionCriteria, content string) []model.Evidence {
	var evidence []model.Evidence
	for _, keyword := range criteria.KeywordsInclude {
		if ev, ok := e.buildEvidence(company, content, "keyword:"+keyword, keyword, 0.7); ok {
			evidence = append(evidence, ev)
		}
	}
	return evidence
}

func (e *EvidenceExtractor) businessModelEvidence(company *model.EnrichedCompany, criteria *model.AcquisitionCriteria, content string) []model.Evidence {
	if company.BusinessModel == "" {
		return nil
	}
	if len(criteria.BusinessModel.Types) > 0 && !containsFold(criteria.BusinessModel.Types, company.BusinessModel) {
		return nil
	}

	keywords, ok := businessModelKeywords[company.BusinessModel]
	if !ok {
		keywords = []string{strings.ToLower(company.BusinessModel)}
	}

	for _, keyword := range keywords {
		if ev, found := e.buildEvidence(company, content, "business_model:"+company.BusinessModel, keyword, company.BusinessModelConfidence); found {
			return []model.Evidence{ev}
		}
	}
	return nil
}

func (e *EvidenceExtractor) customerTypeEvidence(company *model.EnrichedCompany, criteria *model.AcquisitionCriteria, content string) []model.Evidence {
	var evidence []model.Evidence
	for _, ctype := range criteria.CustomerType {
		if !contains(company.CustomerTypes, ctype) {
			continue
		}
		keywords, ok := customerTypeKeywords[ctype]
		if !ok {
			keywords = []string{strings.ToLower(ctype)}
		}
		for _, keyword := range keywords {
			if ev, found := e.buildEvidence(company, content, "customer_type:"+ctype, keyword, 0.7); found {
				evidence = append(evidence, ev)
				break
			}
		}
	}
	return evidence
}

func (e *EvidenceExtractor) complianceEvidence(company *model.EnrichedCompany, criteria *model.AcquisitionCriteria, content string) []model.Evidence {
	var evidence []model.Evidence
	for _, tag := range criteria.ComplianceTags {
		if !contains(company.ComplianceIndicators, tag) {
			continue
		}
		if ev, ok := e.buildEvidence(company, content, "compliance:"+tag, tag, 0.9); ok {
			evidence = append(evidence, ev)
		}
	}
	return evidence
}

func (e *EvidenceExtractor) signalEvidence(company *model.EnrichedCompany, criteria *model.AcquisitionCriteria, content string) []model.Evidence {
	var evidence []model.Evidence
	for _, signal := range criteria.PreferredSignals {
		if !contains(company.SignalsDetected, signal) {
			continue
		}
		keywords, ok := signalKeywords[signal]
		if !ok {
			keywords = []string{strings.ReplaceAll(signal, "_", " ")}
		}
		for _, keyword := range keywords {
			if ev, found := e.buildEvidence(company, content, "signal:"+signal, keyword, 0.6); found {
				evidence = append(evidence, ev)
				break
			}
		}
	}
	return evidence
}

// buildEvidence locates the keyword in the combined content and packages
// the surrounding snippet with its source page URL.
func (e *EvidenceExtractor) buildEvidence(company *model.EnrichedCompany, content, criterion, keyword string, confidence float64) (model.Evidence, bool) {
	snippet, sourceURL := findSnippet(content, keyword, company)
	if snippet == "" {
		return model.Evidence{}, false
	}
	if sourceURL == "" {
		sourceURL = company.Website
	}
	return model.Evidence{
		Criterion:        criterion,
		Snippet:          snippet,
		SourceURL:        sourceURL,
		Confidence:       confidence,
		ExtractionMethod: model.ExtractionKeyword,
	}, true
}

// findSnippet returns the text window around the first whole-word match of
// keyword in content, plus the URL of the first page containing it.
// Leading and trailing ellipses mark truncation at either boundary.
func findSnippet(content, keyword string, company *model.EnrichedCompany) (string, string) {
	contentLower := strings.ToLower(content)
	keywordLower := strings.ToLower(keyword)

	pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(keywordLower) + `\b`)
	loc := pattern.FindStringIndex(contentLower)
	if loc == nil {
		return "", ""
	}

	start := loc[0] - snippetWindow
	if start < 0 {
		start = 0
	}
	end := loc[1] + snippetWindow
	if end > len(content) {
		end = len(content)
	}

	snippet := strings.TrimSpace(content[start:end])
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet += "..."
	}
	if len(snippet) > maxSnippetLength {
		snippet = snippet[:maxSnippetLength] + "..."
	}

	var sourceURL string
	for _, url := range company.PageOrder {
		if strings.Contains(strings.ToLower(company.PageContents[url]), keywordLower) {
			sourceURL = url
			break
		}
	}
	return snippet, sourceURL
}

// contains reports whether list holds item exactly.
func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}

// containsFold reports whether list holds item case-insensitively.
func containsFold(list []string, item string) bool {
	for _, v := range list {
		if strings.EqualFold(v, item) {
			return true
		}
	}
	return false
}
