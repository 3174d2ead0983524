package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ma-discovery/internal/resilience"
	"github.com/sells-group/ma-discovery/pkg/anthropic"
)

// maxLLMContentLength bounds how much page text goes into the prompt.
const maxLLMContentLength = 8000

const extractionPrompt = `Analyze this company's web content and extract structured information.

Company: %s
Website: %s

Content from their website:
---
%s
---

Extract the following information in JSON format:
{
    "business_model": "SaaS|marketplace|services|hardware|e-commerce|other",
    "business_model_explanation": "brief explanation",
    "customer_types": ["B2B", "B2C", "enterprise", "SMB"],
    "employee_count_estimate": number or null,
    "revenue_estimate_usd": number or null,
    "industries": ["list of industries"],
    "compliance_certifications": ["SOC2", "HIPAA", etc.],
    "positive_signals": ["growing_team", "recent_funding", etc.],
    "potential_concerns": ["list any red flags"],
    "confidence": 0.0-1.0
}

Only include fields you can reasonably infer from the content. Be conservative with estimates.
Return only valid JSON, no other text.`

// LLMExtraction is the JSON payload the model returns.
type LLMExtraction struct {
	BusinessModel            string   `json:"business_model"`
	BusinessModelExplanation string   `json:"business_model_explanation"`
	CustomerTypes            []string `json:"customer_types"`
	EmployeeCountEstimate    *int     `json:"employee_count_estimate"`
	RevenueEstimateUSD       *int64   `json:"revenue_estimate_usd"`
	Industries               []string `json:"industries"`
	ComplianceCertifications []string `json:"compliance_certifications"`
	PositiveSignals          []string `json:"positive_signals"`
	PotentialConcerns        []string `json:"potential_concerns"`
	Confidence               float64  `json:"confidence"`
}

// LLMParser extracts structured company data with the Anthropic API when
// rule-based extraction comes back with low confidence.
type LLMParser struct {
	client anthropic.Client
	model  string
}

// NewLLMParser creates an LLMParser. A nil client disables LLM extraction.
func NewLLMParser(client anthropic.Client, model string) *LLMParser {
	return &LLMParser{client: client, model: model}
}

// Available reports whether LLM extraction can run. Safe on a nil
// receiver.
func (p *LLMParser) Available() bool {
	return p != nil && p.client != nil
}

// Parse sends the company's page content to the model and decodes the
// structured reply. Returns nil with no error when the parser is disabled.
func (p *LLMParser) Parse(ctx context.Context, companyName, website, content string) (*LLMExtraction, error) {
	if p.client == nil {
		return nil, nil
	}

	if len(content) > maxLLMContentLength {
		content = content[:maxLLMContentLength] + "...[truncated]"
	}
	prompt := fmt.Sprintf(extractionPrompt, companyName, website, content)

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = func(attempt int, err error) {
		zap.L().Warn("enrich: retrying llm extraction",
			zap.String("company", companyName),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return p.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     p.model,
			MaxTokens: 1024,
			Messages: []anthropic.Message{
				{Role: "user", Content: prompt},
			},
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("enrich: llm extraction for %s", companyName))
	}
	resp.Usage.LogCost(p.model, "enrich")

	extraction, err := decodeExtraction(resp.Text())
	if err != nil {
		zap.L().Warn("enrich: unparseable llm response",
			zap.String("company", companyName),
			zap.Error(err),
		)
		return nil, nil
	}
	return extraction, nil
}

// decodeExtraction pulls JSON out of the model reply, stripping markdown
// fences and repairing minor syntax damage before unmarshalling.
func decodeExtraction(text string) (*LLMExtraction, error) {
	text = stripCodeFences(text)

	var extraction LLMExtraction
	if err := json.Unmarshal([]byte(text), &extraction); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(text)
		if repairErr != nil {
			return nil, eris.Wrap(err, "enrich: decode llm json")
		}
		if err := json.Unmarshal([]byte(repaired), &extraction); err != nil {
			return nil, eris.Wrap(err, "enrich: decode repaired llm json")
		}
	}
	return &extraction, nil
}

func stripCodeFences(text string) string {
	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+3:]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}
	return strings.TrimSpace(text)
}
