package enrich

// llmTakeoverThreshold is the rule-based confidence below which the LLM's
// business model classification replaces the rule-based one.
const llmTakeoverThreshold = 0.6

// Merge combines rule-based and LLM extraction into one result. Rule-based
// findings win except where the LLM is clearly better informed: the
// business model flips only under low rule confidence, and numeric
// estimates fill gaps rather than overwrite. List fields union with
// rule-based entries first so the merge stays deterministic.
func Merge(rule ExtractionResult, llm *LLMExtraction) ExtractionResult {
	if llm == nil {
		return rule
	}

	merged := rule

	if llm.BusinessModel != "" && merged.BusinessModelConfidence < llmTakeoverThreshold {
		merged.BusinessModel = llm.BusinessModel
		merged.BusinessModelConfidence = llm.Confidence
		if merged.BusinessModelConfidence == 0 {
			merged.BusinessModelConfidence = 0.7
		}
	}

	merged.CustomerTypes = unionOrdered(rule.CustomerTypes, llm.CustomerTypes)
	merged.Industries = unionOrdered(rule.Industries, llm.Industries)
	merged.ComplianceIndicators = unionOrdered(rule.ComplianceIndicators, llm.ComplianceCertifications)
	merged.Signals = unionOrdered(rule.Signals, llm.PositiveSignals)

	if merged.EmployeeCount == nil && llm.EmployeeCountEstimate != nil {
		merged.EmployeeCount = llm.EmployeeCountEstimate
	}
	if merged.RevenueEstimate == nil && llm.RevenueEstimateUSD != nil {
		merged.RevenueEstimate = llm.RevenueEstimateUSD
	}

	if len(llm.PotentialConcerns) > 0 {
		merged.PotentialConcerns = llm.PotentialConcerns
	}

	llmConfidence := llm.Confidence
	if llmConfidence == 0 {
		llmConfidence = 0.5
	}
	if llmConfidence > merged.OverallConfidence {
		merged.OverallConfidence = llmConfidence
	}

	return merged
}

// unionOrdered merges two string slices preserving first-seen order.
func unionOrdered(first, second []string) []string {
	if len(first) == 0 && len(second) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(first)+len(second))
	out := make([]string, 0, len(first)+len(second))
	for _, list := range [][]string{first, second} {
		for _, v := range list {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}
