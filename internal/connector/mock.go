package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/sells-group/ma-discovery/internal/model"
)

// MockConnector returns canned candidates. Used for offline development
// and the API's mock mode.
type MockConnector struct {
	companies []*model.CandidateCompany
}

// NewMockConnector creates a MockConnector. With no companies given it
// serves a small built-in fixture set.
func NewMockConnector(companies ...*model.CandidateCompany) *MockConnector {
	if len(companies) == 0 {
		companies = defaultMockCompanies()
	}
	return &MockConnector{companies: companies}
}

func (m *MockConnector) Name() string { return "mock" }

func (m *MockConnector) Search(_ context.Context, _ *model.AcquisitionCriteria, limit int) ([]*model.CandidateCompany, error) {
	if limit <= 0 || limit > len(m.companies) {
		limit = len(m.companies)
	}
	out := make([]*model.CandidateCompany, limit)
	copy(out, m.companies[:limit])
	return out, nil
}

func (m *MockConnector) GenerateQueries(criteria *model.AcquisitionCriteria) []string {
	queries := make([]string, 0, len(criteria.IndustriesInclude))
	for _, industry := range criteria.IndustriesInclude {
		queries = append(queries, fmt.Sprintf("mock query for %s", industry))
	}
	return queries
}

func defaultMockCompanies() []*model.CandidateCompany {
	now := time.Now().UTC()
	return []*model.CandidateCompany{
		{
			Name:          "HealthTech Solutions",
			Domain:        "healthtechsolutions.com",
			Website:       "https://healthtechsolutions.com",
			Description:   "B2B healthcare SaaS platform for patient management",
			Source:        "mock",
			DiscoveredAt:  now,
			Industry:      "Healthcare Technology",
			Location:      "San Francisco, CA",
			EmployeeCount: intPtr(50),
		},
		{
			Name:          "FinanceFlow",
			Domain:        "financeflow.io",
			Website:       "https://financeflow.io",
			Description:   "Automated accounting software for SMBs",
			Source:        "mock",
			DiscoveredAt:  now,
			Industry:      "Fintech",
			Location:      "New York, NY",
			EmployeeCount: intPtr(30),
		},
		{
			Name:          "DataSync Pro",
			Domain:        "datasyncpro.com",
			Website:       "https://datasyncpro.com",
			Description:   "Enterprise data integration and ETL platform",
			Source:        "mock",
			DiscoveredAt:  now,
			Industry:      "Data Infrastructure",
			Location:      "Austin, TX",
			EmployeeCount: intPtr(75),
		},
		{
			Name:          "CloudSecure",
			Domain:        "cloudsecure.io",
			Website:       "https://cloudsecure.io",
			Description:   "Cloud security and compliance automation",
			Source:        "mock",
			DiscoveredAt:  now,
			Industry:      "Cybersecurity",
			Location:      "Boston, MA",
			EmployeeCount: intPtr(100),
		},
		{
			Name:          "RetailAI",
			Domain:        "retailai.co",
			Website:       "https://retailai.co",
			Description:   "AI-powered inventory and demand forecasting",
			Source:        "mock",
			DiscoveredAt:  now,
			Industry:      "Retail Technology",
			Location:      "Seattle, WA",
			EmployeeCount: intPtr(45),
		},
	}
}

func intPtr(v int) *int { return &v }
