package score

import (
	"regexp"
	"strings"

	"github.com/sells-group/ma-discovery/internal/model"
)

// VerticalClassifier identifies whether a company belongs to a priority
// vertical. When the vertical also appears in the criteria's included
// industries, the scorer boosts the industry category score up to the
// classifier's confidence.
type VerticalClassifier interface {
	// Classify returns the vertical name and a confidence in [0, 1].
	// An empty vertical or zero confidence means no match.
	Classify(company *model.EnrichedCompany) (string, float64)
}

// KeywordVerticalClassifier classifies a company into a single vertical
// from distinct keyword hits across its description and page text.
type KeywordVerticalClassifier struct {
	Vertical string
	Keywords []string

	patterns []*regexp.Regexp
}

// NewKeywordVerticalClassifier compiles word-boundary patterns for each
// keyword up front so Classify stays allocation-light per company.
func NewKeywordVerticalClassifier(vertical string, keywords []string) *KeywordVerticalClassifier {
	patterns := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		patterns = append(patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(strings.ToLower(kw))+`\b`))
	}
	return &KeywordVerticalClassifier{
		Vertical: vertical,
		Keywords: keywords,
		patterns: patterns,
	}
}

// Classify counts distinct keyword hits in the company's text. One hit
// gives a 0.4 baseline; each further distinct keyword adds 0.15, capped
// at 0.95 since keyword evidence alone is never certain.
func (k *KeywordVerticalClassifier) Classify(company *model.EnrichedCompany) (string, float64) {
	text := strings.ToLower(companyText(company))
	if text == "" {
		return "", 0
	}

	var hits int
	for _, p := range k.patterns {
		if p.MatchString(text) {
			hits++
		}
	}
	if hits == 0 {
		return "", 0
	}

	confidence := 0.4 + 0.15*float64(hits-1)
	if confidence > 0.95 {
		confidence = 0.95
	}
	return k.Vertical, confidence
}

// companyText joins the description, detected industries, and all page
// text into one searchable blob.
func companyText(company *model.EnrichedCompany) string {
	parts := make([]string, 0, 2+len(company.PageContents))
	if company.Description != "" {
		parts = append(parts, company.Description)
	}
	if len(company.Industries) > 0 {
		parts = append(parts, strings.Join(company.Industries, " "))
	}
	parts = append(parts, company.PagesInOrder()...)
	return strings.Join(parts, "\n")
}
