package model

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DefaultWeights maps each scoring category to its default weight.
// Weights need not sum to 1; the scorer renormalizes by total active weight.
var DefaultWeights = map[string]float64{
	"industry":       0.20,
	"keyword":        0.15,
	"business_model": 0.20,
	"customer_type":  0.15,
	"geography":      0.10,
	"size":           0.10,
	"compliance":     0.05,
	"signals":        0.05,
}

// GeographyFilter holds geographic constraints for target companies.
type GeographyFilter struct {
	Countries        []string `json:"countries,omitempty" yaml:"countries"`
	Regions          []string `json:"regions,omitempty" yaml:"regions"`
	ExcludeCountries []string `json:"exclude_countries,omitempty" yaml:"exclude_countries"`
	HeadquartersOnly bool     `json:"headquarters_only,omitempty" yaml:"headquarters_only"`
}

// SizeConstraints holds optional min/max bounds on company size.
// Nil means unbounded. All bounds are inclusive.
type SizeConstraints struct {
	RevenueMin   *int64 `json:"revenue_min,omitempty" yaml:"revenue_min"`
	RevenueMax   *int64 `json:"revenue_max,omitempty" yaml:"revenue_max"`
	EmployeesMin *int   `json:"employees_min,omitempty" yaml:"employees_min"`
	EmployeesMax *int   `json:"employees_max,omitempty" yaml:"employees_max"`
	FundingMin   *int64 `json:"funding_min,omitempty" yaml:"funding_min"`
	FundingMax   *int64 `json:"funding_max,omitempty" yaml:"funding_max"`
}

// BusinessModelFilter holds business model constraints.
type BusinessModelFilter struct {
	Types                    []string `json:"types,omitempty" yaml:"types"`
	ExcludeTypes             []string `json:"exclude_types,omitempty" yaml:"exclude_types"`
	RecurringRevenueRequired bool     `json:"recurring_revenue_required,omitempty" yaml:"recurring_revenue_required"`
}

// AcquisitionCriteria is a complete acquisition criteria profile.
// One immutable value per run; the scoring core never mutates it.
type AcquisitionCriteria struct {
	IndustriesInclude []string `json:"industries_include,omitempty" yaml:"industries_include"`
	IndustriesExclude []string `json:"industries_exclude,omitempty" yaml:"industries_exclude"`

	KeywordsInclude []string `json:"keywords_include,omitempty" yaml:"keywords_include"`
	KeywordsExclude []string `json:"keywords_exclude,omitempty" yaml:"keywords_exclude"`

	Geography     GeographyFilter     `json:"geography,omitempty" yaml:"geography"`
	Size          SizeConstraints     `json:"size,omitempty" yaml:"size"`
	BusinessModel BusinessModelFilter `json:"business_model,omitempty" yaml:"business_model"`

	CustomerType []string `json:"customer_type,omitempty" yaml:"customer_type"`

	ComplianceTags   []string `json:"compliance_tags,omitempty" yaml:"compliance_tags"`
	PreferredSignals []string `json:"preferred_signals,omitempty" yaml:"preferred_signals"`

	Disqualifiers []string `json:"disqualifiers,omitempty" yaml:"disqualifiers"`
	Dealbreakers  []string `json:"dealbreakers,omitempty" yaml:"dealbreakers"`

	Weights map[string]float64 `json:"weights,omitempty" yaml:"weights"`
}

// Weight returns the configured weight for a category, falling back to def.
func (c *AcquisitionCriteria) Weight(category string, def float64) float64 {
	if w, ok := c.Weights[category]; ok {
		return w
	}
	return def
}

// Validate checks that the criteria profile is internally consistent.
// The scoring core assumes a validated profile and does not re-check.
func (c *AcquisitionCriteria) Validate() error {
	for category, w := range c.Weights {
		if w < 0 {
			return eris.Errorf("criteria: weight for %q must be >= 0, got %v", category, w)
		}
	}
	return nil
}

// LoadCriteria reads an acquisition criteria profile from a YAML file.
func LoadCriteria(path string) (*AcquisitionCriteria, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "criteria: read %s", path)
	}

	var c AcquisitionCriteria
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrapf(err, "criteria: parse %s", path)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
