package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/ma-discovery/internal/model"
)

func TestClassifyIndustries(t *testing.T) {
	classifier := NewBusinessClassifier()
	criteria := &model.AcquisitionCriteria{
		IndustriesInclude: []string{"fintech"},
	}

	result := classifier.Classify(
		"Payments software for telehealth providers.", criteria, nil)

	// Criteria industries come first, then known verticals.
	assert.Equal(t, []string{"fintech", "healthcare tech"}, result.Industries)
}

func TestClassifyCustomIndustryLiteral(t *testing.T) {
	classifier := NewBusinessClassifier()
	criteria := &model.AcquisitionCriteria{
		IndustriesInclude: []string{"veterinary"},
	}

	result := classifier.Classify("Practice management for veterinary clinics.", criteria, nil)

	assert.Contains(t, result.Industries, "veterinary")
}

func TestClassifyExistingValuesSurvive(t *testing.T) {
	classifier := NewBusinessClassifier()
	existing := &ExtractionResult{
		BusinessModel:           "SaaS",
		BusinessModelConfidence: 0.9,
		CustomerTypes:           []string{"B2B"},
	}

	result := classifier.Classify(
		"A consulting agency for consumer brands.", &model.AcquisitionCriteria{}, existing)

	assert.Equal(t, "SaaS", result.BusinessModel)
	assert.InDelta(t, 0.9, result.BusinessModelConfidence, 0.001)
	assert.Equal(t, []string{"B2B"}, result.CustomerTypes)
}

func TestClassifyStandardDisqualifiers(t *testing.T) {
	classifier := NewBusinessClassifier()

	result := classifier.Classify(
		"Blockchain settlement for casino operators facing a lawsuit.",
		&model.AcquisitionCriteria{}, nil)

	assert.Contains(t, result.DisqualifiersDetected, "cryptocurrency")
	assert.Contains(t, result.DisqualifiersDetected, "gambling")
	assert.Contains(t, result.DisqualifiersDetected, "litigation")
	// Standard disqualifiers are recorded, not reasons to disqualify here.
	assert.False(t, result.IsDisqualified)
	assert.Empty(t, result.DisqualificationReasons)
}

func TestClassifyDealbreakers(t *testing.T) {
	classifier := NewBusinessClassifier()
	criteria := &model.AcquisitionCriteria{
		Dealbreakers:    []string{"franchise"},
		KeywordsExclude: []string{"agency"},
	}

	result := classifier.Classify(
		"A franchise marketing agency.", criteria, nil)

	assert.True(t, result.IsDisqualified)
	assert.Contains(t, result.DisqualificationReasons, "Dealbreaker detected: franchise")
	assert.Contains(t, result.DisqualificationReasons, "Excluded keyword found: agency")
	assert.Contains(t, result.DisqualifiersDetected, "franchise")
	assert.Contains(t, result.DisqualifiersDetected, "agency")
}

func TestClassifyExcludedBusinessModel(t *testing.T) {
	classifier := NewBusinessClassifier()
	criteria := &model.AcquisitionCriteria{
		BusinessModel: model.BusinessModelFilter{
			ExcludeTypes: []string{"services"},
		},
	}

	result := classifier.Classify(
		"A consulting agency offering managed services.", criteria, nil)

	assert.True(t, result.IsDisqualified)
	assert.Contains(t, result.DisqualificationReasons, "Excluded business model: services")
}

func TestClassifyExcludedIndustry(t *testing.T) {
	classifier := NewBusinessClassifier()
	criteria := &model.AcquisitionCriteria{
		IndustriesExclude: []string{"martech"},
	}

	result := classifier.Classify(
		"Campaign attribution and advertising analytics.", criteria, nil)

	assert.True(t, result.IsDisqualified)
	assert.Contains(t, result.DisqualificationReasons, "Excluded industry: martech")
}

func TestWholeWordMatch(t *testing.T) {
	assert.True(t, wholeWordMatch("we run a casino resort", "casino"))
	assert.False(t, wholeWordMatch("casinos are excluded", "casino"))
}
