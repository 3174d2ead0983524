package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/ma-discovery/internal/model"
)

func cannabisClassifier() *KeywordVerticalClassifier {
	return NewKeywordVerticalClassifier("cannabis software", []string{
		"cannabis", "dispensary", "seed-to-sale", "cultivation",
	})
}

func TestKeywordVerticalClassify(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantHit  bool
		wantConf float64
	}{
		{"no keywords", "general purpose crm software", false, 0},
		{"single keyword", "point of sale for every dispensary", true, 0.4},
		{"two keywords", "cannabis compliance for dispensary chains", true, 0.55},
		{
			"all keywords",
			"cannabis dispensary seed-to-sale cultivation tracking",
			true, 0.85,
		},
	}

	classifier := cannabisClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			company := &model.EnrichedCompany{}
			company.AddPage("https://x.example.com", tt.text)

			vertical, conf := classifier.Classify(company)
			if tt.wantHit {
				assert.Equal(t, "cannabis software", vertical)
				assert.InDelta(t, tt.wantConf, conf, 0.001)
			} else {
				assert.Empty(t, vertical)
				assert.Zero(t, conf)
			}
		})
	}
}

func TestKeywordVerticalClassifyEmptyCompany(t *testing.T) {
	vertical, conf := cannabisClassifier().Classify(&model.EnrichedCompany{})
	assert.Empty(t, vertical)
	assert.Zero(t, conf)
}

func TestVerticalBoostAppliesWhenReferenced(t *testing.T) {
	criteria := &model.AcquisitionCriteria{
		IndustriesInclude: []string{"cannabis software"},
	}
	company := &model.EnrichedCompany{
		Industries: []string{"retail tech"},
	}
	company.AddPage("https://x.example.com",
		"cannabis dispensary seed-to-sale cultivation platform")

	scorer := NewScorer(WithVerticalClassifier(cannabisClassifier()))
	scored := scorer.Score(company, criteria)

	// Industry would score 0 on direct matching but the vertical boost
	// lifts it to the classifier confidence.
	assert.InDelta(t, 0.85, scored.ScoreBreakdown["industry"], 0.001)
	assert.Contains(t, scored.MatchSummary[0], "CANNABIS SOFTWARE")
}

func TestVerticalBoostSkippedWhenNotReferenced(t *testing.T) {
	criteria := &model.AcquisitionCriteria{
		IndustriesInclude: []string{"fintech"},
	}
	company := &model.EnrichedCompany{
		Industries: []string{"retail tech"},
	}
	company.AddPage("https://x.example.com", "cannabis dispensary platform")

	scorer := NewScorer(WithVerticalClassifier(cannabisClassifier()))
	scored := scorer.Score(company, criteria)

	assert.InDelta(t, 0.0, scored.ScoreBreakdown["industry"], 0.001)
}

func TestVerticalBoostNeverLowersScore(t *testing.T) {
	criteria := &model.AcquisitionCriteria{
		IndustriesInclude: []string{"cannabis software"},
	}
	company := &model.EnrichedCompany{
		Industries: []string{"cannabis software"},
	}
	company.AddPage("https://x.example.com", "we serve one dispensary")

	scorer := NewScorer(WithVerticalClassifier(cannabisClassifier()))
	scored := scorer.Score(company, criteria)

	// Direct industry match already scores 1.0; a 0.4 confidence
	// classification must not pull it down.
	assert.InDelta(t, 1.0, scored.ScoreBreakdown["industry"], 0.001)
}
