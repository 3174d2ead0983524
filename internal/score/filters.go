package score

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sells-group/ma-discovery/internal/model"
)

// recurringRevenueModels are the business models that satisfy a recurring
// revenue requirement.
var recurringRevenueModels = []string{"SaaS", "subscription"}

// FilterResult is the outcome of applying hard filters to one company.
// Disqualification zeroes the fit score downstream; failed soft filters
// only mark the company as not passing.
type FilterResult struct {
	Passed                  bool     `json:"passed"`
	FailedFilters           []string `json:"failed_filters,omitempty"`
	IsDisqualified          bool     `json:"is_disqualified"`
	DisqualificationReasons []string `json:"disqualification_reasons,omitempty"`
}

// HardFilters applies pass/fail checks from acquisition criteria.
type HardFilters struct{}

// NewHardFilters creates a HardFilters.
func NewHardFilters() *HardFilters {
	return &HardFilters{}
}

// Apply runs every filter against the company. Missing data never fails a
// filter: a company without a headquarters skips geography checks, and a
// missing size dimension skips that size check.
func (h *HardFilters) Apply(company *model.EnrichedCompany, criteria *model.AcquisitionCriteria) FilterResult {
	var failed []string
	var reasons []string

	for _, dq := range company.DisqualifiersDetected {
		if contains(criteria.Dealbreakers, dq) {
			reasons = append(reasons, fmt.Sprintf("Dealbreaker: %s", dq))
		}
	}

	for _, industry := range company.Industries {
		if containsFold(criteria.IndustriesExclude, industry) {
			reasons = append(reasons, fmt.Sprintf("Excluded industry: %s", industry))
		}
	}

	if company.BusinessModel != "" && containsFold(criteria.BusinessModel.ExcludeTypes, company.BusinessModel) {
		reasons = append(reasons, fmt.Sprintf("Excluded business model: %s", company.BusinessModel))
	}

	failed = append(failed, h.checkSize(company, criteria)...)
	failed = append(failed, h.checkGeography(company, criteria)...)

	if criteria.BusinessModel.RecurringRevenueRequired && !contains(recurringRevenueModels, company.BusinessModel) {
		failed = append(failed, "Recurring revenue required but not detected")
	}

	disqualified := len(reasons) > 0
	return FilterResult{
		Passed:                  !disqualified && len(failed) == 0,
		FailedFilters:           failed,
		IsDisqualified:          disqualified,
		DisqualificationReasons: reasons,
	}
}

func (h *HardFilters) checkSize(company *model.EnrichedCompany, criteria *model.AcquisitionCriteria) []string {
	var failed []string
	size := criteria.Size

	if company.EmployeesEstimate != nil {
		employees := *company.EmployeesEstimate
		if size.EmployeesMin != nil && employees < *size.EmployeesMin {
			failed = append(failed, fmt.Sprintf("Employee count %d below minimum %d", employees, *size.EmployeesMin))
		}
		if size.EmployeesMax != nil && employees > *size.EmployeesMax {
			failed = append(failed, fmt.Sprintf("Employee count %d above maximum %d", employees, *size.EmployeesMax))
		}
	}

	if company.RevenueEstimate != nil {
		revenue := *company.RevenueEstimate
		if size.RevenueMin != nil && revenue < *size.RevenueMin {
			failed = append(failed, fmt.Sprintf("Revenue $%s below minimum $%s", groupDigits(revenue), groupDigits(*size.RevenueMin)))
		}
		if size.RevenueMax != nil && revenue > *size.RevenueMax {
			failed = append(failed, fmt.Sprintf("Revenue $%s above maximum $%s", groupDigits(revenue), groupDigits(*size.RevenueMax)))
		}
	}

	if company.FundingTotal != nil {
		funding := *company.FundingTotal
		if size.FundingMin != nil && funding < *size.FundingMin {
			failed = append(failed, fmt.Sprintf("Funding $%s below minimum $%s", groupDigits(funding), groupDigits(*size.FundingMin)))
		}
		if size.FundingMax != nil && funding > *size.FundingMax {
			failed = append(failed, fmt.Sprintf("Funding $%s above maximum $%s", groupDigits(funding), groupDigits(*size.FundingMax)))
		}
	}

	return failed
}

func (h *HardFilters) checkGeography(company *model.EnrichedCompany, criteria *model.AcquisitionCriteria) []string {
	if company.Headquarters == "" {
		return nil
	}

	var failed []string
	geo := criteria.Geography
	location := strings.ToLower(company.Headquarters)

	for _, country := range geo.ExcludeCountries {
		if strings.Contains(location, strings.ToLower(country)) {
			failed = append(failed, fmt.Sprintf("Company in excluded country: %s", country))
		}
	}

	if len(geo.Countries) > 0 {
		matched := false
		for _, country := range geo.Countries {
			if strings.Contains(location, strings.ToLower(country)) {
				matched = true
				break
			}
		}
		if !matched {
			failed = append(failed, fmt.Sprintf("Company not in required countries: %s", strings.Join(geo.Countries, ", ")))
		}
	}

	if len(geo.Regions) > 0 {
		matched := false
		for _, region := range geo.Regions {
			if strings.Contains(location, strings.ToLower(region)) {
				matched = true
				break
			}
		}
		if !matched {
			failed = append(failed, fmt.Sprintf("Company not in required regions: %s", strings.Join(geo.Regions, ", ")))
		}
	}

	return failed
}

// groupDigits formats n with comma thousands separators.
func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
