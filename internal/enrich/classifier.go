package enrich

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sells-group/ma-discovery/internal/model"
)

// industryKeywords maps a vertical label to the phrases that indicate it.
var industryKeywords = map[string][]string{
	"healthcare tech": {
		"healthcare", "health tech", "medical", "patient", "clinical",
		"hospital", "telehealth", "healthtech", "medtech", "ehr", "emr",
	},
	"fintech": {
		"fintech", "financial", "banking", "payments", "lending",
		"insurance", "insurtech", "wealth", "trading", "crypto",
	},
	"edtech": {
		"education", "edtech", "learning", "school", "training",
		"e-learning", "lms", "course", "student",
	},
	"cybersecurity": {
		"security", "cybersecurity", "infosec", "threat", "vulnerability",
		"encryption", "firewall", "compliance", "soc", "siem",
	},
	"devtools": {
		"developer", "devops", "ci/cd", "deployment", "infrastructure",
		"api", "sdk", "code", "programming", "software development",
	},
	"martech": {
		"marketing", "martech", "advertising", "analytics", "attribution",
		"campaign", "crm", "customer data", "email marketing",
	},
	"hrtech": {
		"hr", "human resources", "recruiting", "hiring", "payroll",
		"benefits", "workforce", "talent", "employee",
	},
	"proptech": {
		"real estate", "property", "proptech", "housing", "rental",
		"mortgage", "construction", "building",
	},
	"logistics": {
		"logistics", "shipping", "supply chain", "warehouse", "delivery",
		"freight", "fleet", "transportation",
	},
	"data infrastructure": {
		"data", "database", "data warehouse", "etl", "data pipeline",
		"analytics", "bi", "business intelligence", "data lake",
	},
}

// industryOrder fixes iteration order over industryKeywords.
var industryOrder = []string{
	"healthcare tech", "fintech", "edtech", "cybersecurity", "devtools",
	"martech", "hrtech", "proptech", "logistics", "data infrastructure",
}

// disqualifierPatterns flag businesses most buyers will not touch.
var disqualifierPatterns = newPatternSet([]patternEntry{
	{"cryptocurrency", []string{`\bcrypto\b`, `\bblockchain\b`, `\bnft\b`, `\bweb3\b`}},
	{"gambling", []string{`\bgambling\b`, `\bcasino\b`, `\bbetting\b`, `\bpoker\b`}},
	{"adult_content", []string{`\badult\b`, `\bexplicit\b`, `\b18\+`}},
	{"weapons", []string{`\bweapons?\b`, `\bfirearms?\b`, `\bammunition\b`}},
	{"tobacco", []string{`\btobacco\b`, `\bcigarette\b`, `\bvaping\b`, `\be-?cig\b`}},
	{"government_contractor", []string{`\bgovernment.contract`, `\bdefense.contract`}},
	{"litigation", []string{`\blawsuit\b`, `\blitigation\b`, `\bsued\b`}},
	{"bankruptcy", []string{`\bbankruptcy\b`, `\binsolvent\b`, `\bchapter.11\b`}},
})

// ClassificationResult is the outcome of classifying a company's text.
type ClassificationResult struct {
	BusinessModel           string
	BusinessModelConfidence float64
	CustomerTypes           []string
	Industries              []string
	DisqualifiersDetected   []string
	IsDisqualified          bool
	DisqualificationReasons []string
}

// BusinessClassifier classifies business model and industries, and detects
// disqualifying content.
type BusinessClassifier struct {
	parser *RuleBasedParser
}

// NewBusinessClassifier creates a BusinessClassifier.
func NewBusinessClassifier() *BusinessClassifier {
	return &BusinessClassifier{parser: NewRuleBasedParser()}
}

// Classify analyses text against the criteria. Values already present in
// existing survive: classification fills gaps, it does not overwrite.
func (b *BusinessClassifier) Classify(text string, criteria *model.AcquisitionCriteria, existing *ExtractionResult) ClassificationResult {
	parsed := b.parser.Parse(text)

	businessModel := parsed.BusinessModel
	confidence := parsed.BusinessModelConfidence
	customerTypes := parsed.CustomerTypes
	if existing != nil {
		if existing.BusinessModel != "" {
			businessModel = existing.BusinessModel
		}
		if existing.BusinessModelConfidence > 0 {
			confidence = existing.BusinessModelConfidence
		}
		if len(existing.CustomerTypes) > 0 {
			customerTypes = existing.CustomerTypes
		}
	}

	industries := detectIndustries(text, criteria)
	detected, reasons := checkDisqualifiers(text, criteria)

	disqualified := len(reasons) > 0
	if businessModel != "" {
		for _, excluded := range criteria.BusinessModel.ExcludeTypes {
			if strings.EqualFold(businessModel, excluded) {
				disqualified = true
				reasons = append(reasons, fmt.Sprintf("Excluded business model: %s", businessModel))
				break
			}
		}
	}
	for _, industry := range industries {
		for _, excluded := range criteria.IndustriesExclude {
			if strings.EqualFold(industry, excluded) {
				disqualified = true
				reasons = append(reasons, fmt.Sprintf("Excluded industry: %s", industry))
				break
			}
		}
	}

	return ClassificationResult{
		BusinessModel:           businessModel,
		BusinessModelConfidence: confidence,
		CustomerTypes:           customerTypes,
		Industries:              industries,
		DisqualifiersDetected:   detected,
		IsDisqualified:          disqualified,
		DisqualificationReasons: reasons,
	}
}

// detectIndustries returns criteria industries and known verticals whose
// keywords appear in the text. Criteria industries come first.
func detectIndustries(text string, criteria *model.AcquisitionCriteria) []string {
	lower := strings.ToLower(text)
	var detected []string
	seen := make(map[string]bool)

	for _, industry := range criteria.IndustriesInclude {
		key := strings.ToLower(industry)
		keywords, ok := industryKeywords[key]
		if !ok {
			keywords = []string{key}
		}
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				if !seen[key] {
					detected = append(detected, industry)
					seen[key] = true
				}
				break
			}
		}
	}

	for _, industry := range industryOrder {
		if seen[industry] {
			continue
		}
		for _, keyword := range industryKeywords[industry] {
			if strings.Contains(lower, keyword) {
				detected = append(detected, industry)
				seen[industry] = true
				break
			}
		}
	}

	return detected
}

// checkDisqualifiers scans for standard and criteria-specific red flags.
// Dealbreakers and excluded keywords produce disqualification reasons;
// plain disqualifiers are only recorded for filter matching downstream.
func checkDisqualifiers(text string, criteria *model.AcquisitionCriteria) ([]string, []string) {
	lower := strings.ToLower(text)
	var detected []string
	var reasons []string

	for i, label := range disqualifierPatterns.labels {
		if anyMatch(disqualifierPatterns.patterns[i], lower) {
			detected = append(detected, label)
		}
	}

	for _, disqualifier := range criteria.Disqualifiers {
		if wholeWordMatch(lower, disqualifier) {
			detected = append(detected, disqualifier)
		}
	}
	for _, dealbreaker := range criteria.Dealbreakers {
		if wholeWordMatch(lower, dealbreaker) {
			detected = append(detected, dealbreaker)
			reasons = append(reasons, fmt.Sprintf("Dealbreaker detected: %s", dealbreaker))
		}
	}
	for _, keyword := range criteria.KeywordsExclude {
		if wholeWordMatch(lower, keyword) {
			detected = append(detected, keyword)
			reasons = append(reasons, fmt.Sprintf("Excluded keyword found: %s", keyword))
		}
	}

	return detected, reasons
}

func wholeWordMatch(text, word string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(word)) + `\b`)
	return re.MatchString(text)
}
