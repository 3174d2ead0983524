package score

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ma-discovery/internal/model"
)

func evidenceByCriterion(evidence []model.Evidence, criterion string) (model.Evidence, bool) {
	for _, ev := range evidence {
		if ev.Criterion == criterion {
			return ev, true
		}
	}
	return model.Evidence{}, false
}

func TestExtractKeywordEvidence(t *testing.T) {
	company := &model.EnrichedCompany{
		CandidateCompany: model.CandidateCompany{Website: "https://acme.example.com"},
	}
	company.AddPage("https://acme.example.com/about",
		"Acme builds workflow automation for accounting teams across the midwest.")

	criteria := &model.AcquisitionCriteria{
		KeywordsInclude: []string{"automation", "blockchain"},
	}

	evidence := NewEvidenceExtractor().Extract(company, criteria)

	ev, found := evidenceByCriterion(evidence, "keyword:automation")
	require.True(t, found)
	assert.Contains(t, ev.Snippet, "automation")
	assert.Equal(t, "https://acme.example.com/about", ev.SourceURL)
	assert.InDelta(t, 0.7, ev.Confidence, 0.001)
	assert.Equal(t, model.ExtractionKeyword, ev.ExtractionMethod)

	_, found = evidenceByCriterion(evidence, "keyword:blockchain")
	assert.False(t, found)
}

func TestExtractWordBoundary(t *testing.T) {
	company := &model.EnrichedCompany{}
	company.AddPage("https://x.example.com", "Our automations module ships quarterly.")

	criteria := &model.AcquisitionCriteria{KeywordsInclude: []string{"automation"}}
	evidence := NewEvidenceExtractor().Extract(company, criteria)

	// "automations" must not match the whole word "automation".
	assert.Empty(t, evidence)
}

func TestExtractSnippetWindow(t *testing.T) {
	padding := strings.Repeat("x", 300)
	company := &model.EnrichedCompany{}
	company.AddPage("https://x.example.com", padding+" telehealth "+padding)

	criteria := &model.AcquisitionCriteria{KeywordsInclude: []string{"telehealth"}}
	evidence := NewEvidenceExtractor().Extract(company, criteria)
	require.Len(t, evidence, 1)

	snippet := evidence[0].Snippet
	assert.True(t, strings.HasPrefix(snippet, "..."))
	assert.True(t, strings.HasSuffix(snippet, "..."))
	assert.LessOrEqual(t, len(snippet), maxSnippetLength+3)
	assert.Contains(t, snippet, "telehealth")
}

func TestExtractSnippetAtStart(t *testing.T) {
	company := &model.EnrichedCompany{}
	company.AddPage("https://x.example.com", "telehealth for rural clinics")

	criteria := &model.AcquisitionCriteria{KeywordsInclude: []string{"telehealth"}}
	evidence := NewEvidenceExtractor().Extract(company, criteria)
	require.Len(t, evidence, 1)

	assert.Equal(t, "telehealth for rural clinics", evidence[0].Snippet)
}

func TestExtractSourceURLFirstPage(t *testing.T) {
	company := &model.EnrichedCompany{
		CandidateCompany: model.CandidateCompany{Website: "https://acme.example.com"},
	}
	company.AddPage("https://acme.example.com/", "General marketing copy.")
	company.AddPage("https://acme.example.com/pricing", "Simple subscription pricing.")
	company.AddPage("https://acme.example.com/blog", "More subscription news.")

	criteria := &model.AcquisitionCriteria{KeywordsInclude: []string{"subscription"}}
	evidence := NewEvidenceExtractor().Extract(company, criteria)
	require.Len(t, evidence, 1)

	assert.Equal(t, "https://acme.example.com/pricing", evidence[0].SourceURL)
}

func TestExtractBusinessModelEvidence(t *testing.T) {
	company := &model.EnrichedCompany{
		BusinessModel:           "SaaS",
		BusinessModelConfidence: 0.85,
	}
	company.AddPage("https://x.example.com", "Flexible monthly plans on our cloud platform.")

	t.Run("matching type", func(t *testing.T) {
		criteria := &model.AcquisitionCriteria{
			BusinessModel: model.BusinessModelFilter{Types: []string{"saas"}},
		}
		evidence := NewEvidenceExtractor().Extract(company, criteria)
		ev, found := evidenceByCriterion(evidence, "business_model:SaaS")
		require.True(t, found)
		assert.InDelta(t, 0.85, ev.Confidence, 0.001)
	})

	t.Run("non-matching type yields nothing", func(t *testing.T) {
		criteria := &model.AcquisitionCriteria{
			BusinessModel: model.BusinessModelFilter{Types: []string{"marketplace"}},
		}
		evidence := NewEvidenceExtractor().Extract(company, criteria)
		_, found := evidenceByCriterion(evidence, "business_model:SaaS")
		assert.False(t, found)
	})
}

func TestExtractComplianceAndSignals(t *testing.T) {
	company := &model.EnrichedCompany{
		ComplianceIndicators: []string{"SOC2"},
		SignalsDetected:      []string{"recent_funding"},
	}
	company.AddPage("https://x.example.com",
		"We are SOC2 certified and recently raised our Series B funding round.")

	criteria := &model.AcquisitionCriteria{
		ComplianceTags:   []string{"SOC2"},
		PreferredSignals: []string{"recent_funding"},
	}

	evidence := NewEvidenceExtractor().Extract(company, criteria)

	compliance, found := evidenceByCriterion(evidence, "compliance:SOC2")
	require.True(t, found)
	assert.InDelta(t, 0.9, compliance.Confidence, 0.001)

	signal, found := evidenceByCriterion(evidence, "signal:recent_funding")
	require.True(t, found)
	assert.InDelta(t, 0.6, signal.Confidence, 0.001)
}

func TestExtractNoPages(t *testing.T) {
	company := &model.EnrichedCompany{
		Industries: []string{"fintech"},
	}
	criteria := &model.AcquisitionCriteria{
		IndustriesInclude: []string{"fintech"},
		KeywordsInclude:   []string{"payments"},
	}

	evidence := NewEvidenceExtractor().Extract(company, criteria)
	assert.Empty(t, evidence)
}
