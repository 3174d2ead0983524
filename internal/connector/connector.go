// Package connector discovers candidate companies from external sources.
package connector

import (
	"context"
	"fmt"
	"strings"

	"github.com/sells-group/ma-discovery/internal/model"
)

// Connector is a source of candidate companies.
type Connector interface {
	// Name identifies the source, recorded on every candidate it returns.
	Name() string

	// Search finds candidate companies matching the criteria, up to limit.
	Search(ctx context.Context, criteria *model.AcquisitionCriteria, limit int) ([]*model.CandidateCompany, error)

	// GenerateQueries builds the search queries derived from the criteria.
	GenerateQueries(criteria *model.AcquisitionCriteria) []string
}

// buildIndustryQueries produces "<industry> company [country]" queries.
func buildIndustryQueries(criteria *model.AcquisitionCriteria) []string {
	var queries []string
	for _, industry := range criteria.IndustriesInclude {
		base := fmt.Sprintf("%s company", industry)
		if len(criteria.Geography.Countries) > 0 {
			countries := criteria.Geography.Countries
			if len(countries) > 3 {
				countries = countries[:3]
			}
			for _, country := range countries {
				queries = append(queries, fmt.Sprintf("%s %s", base, country))
			}
		} else {
			queries = append(queries, base)
		}
	}
	return queries
}

// buildKeywordQueries pairs included keywords with target business models.
func buildKeywordQueries(criteria *model.AcquisitionCriteria) []string {
	var queries []string
	for _, keyword := range criteria.KeywordsInclude {
		if len(criteria.BusinessModel.Types) > 0 {
			types := criteria.BusinessModel.Types
			if len(types) > 2 {
				types = types[:2]
			}
			for _, bm := range types {
				queries = append(queries, fmt.Sprintf("%s %s", keyword, bm))
			}
		} else {
			queries = append(queries, fmt.Sprintf("%s startup", keyword))
		}
	}
	return queries
}

// exclusionSuffix renders excluded keywords as negative search terms.
func exclusionSuffix(criteria *model.AcquisitionCriteria) string {
	excluded := criteria.KeywordsExclude
	if len(excluded) > 5 {
		excluded = excluded[:5]
	}
	terms := make([]string, 0, len(excluded))
	for _, term := range excluded {
		terms = append(terms, "-"+term)
	}
	return strings.Join(terms, " ")
}
