package analysis

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

// StagePrompt holds the model parameters and prompt text for one stage.
type StagePrompt struct {
	Temperature  float32 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	System       string  `yaml:"system"`
	UserTemplate string  `yaml:"user_template"`
}

// PromptConfig holds all stage prompts.
type PromptConfig struct {
	Classification StagePrompt `yaml:"classification"`
	Extraction     StagePrompt `yaml:"extraction"`
	Reconciliation StagePrompt `yaml:"reconciliation"`
}

// LoadPrompts loads prompt configuration from a YAML file. An empty path
// yields the built-in defaults.
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	if promptsPath == "" {
		return DefaultPrompts(), nil
	}

	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var prompts PromptConfig
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}

	return &prompts, nil
}

// renderTemplate renders a user template with the provided data.
func renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// DefaultPrompts returns the built-in prompt configuration.
func DefaultPrompts() *PromptConfig {
	return &PromptConfig{
		Classification: StagePrompt{
			Temperature: 0.1,
			MaxTokens:   512,
			System: "You are a document classifier for restaurant financial documents. " +
				"Classify each document into exactly one category from this closed set: " +
				"payment_report, bank_statement, invoice, receipt, pricing_list, refund_record, other. " +
				"Always respond with a single valid JSON object.",
			UserTemplate: `Classify this document.

File name: {{.FileName}}

Document content:
{{.Content}}

Return a JSON object with this exact structure:
{
  "category": "one of: payment_report, bank_statement, invoice, receipt, pricing_list, refund_record, other",
  "confidence": 0.0 to 1.0,
  "reasoning": "one sentence explaining the classification",
  "suggestedSection": "where this document belongs in an analysis dashboard"
}`,
		},
		Extraction: StagePrompt{
			Temperature: 0.1,
			MaxTokens:   4096,
			System: "You are a financial analyst extracting revenue data from restaurant platform reports. " +
				"Every monetary figure you return must carry an isEstimate flag and a source field. " +
				"Set source to \"verified\" ONLY when the number appears as an explicit line in the document; " +
				"any inferred, summed, or approximated figure must carry source \"inferred\" and isEstimate true. " +
				"Always respond with a single valid JSON object.",
			UserTemplate: `Extract a structured financial summary from this report{{if .ReportType}} (type: {{.ReportType}}){{end}}.

Report content:
{{.Content}}

Return a JSON object with this exact structure:
{
  "totalRevenue": {"value": number, "isEstimate": boolean, "source": "verified" or "inferred"},
  "totalFees": {"value": number, "isEstimate": boolean, "source": "verified" or "inferred"},
  "totalPromos": {"value": number, "isEstimate": boolean, "source": "verified" or "inferred"},
  "totalRefunds": {"value": number, "isEstimate": boolean, "source": "verified" or "inferred"},
  "netProfit": {"value": number, "isEstimate": boolean, "source": "verified" or "inferred"},
  "issues": [{"type": "pricing_error|missed_refund|fee_discrepancy|promo_loss", "description": "string", "potentialRecovery": number}],
  "items": [{"name": "string", "quantity": number, "revenue": number, "profit": number, "isEstimate": boolean}],
  "recommendations": ["string"]
}

IMPORTANT: every monetary object MUST include the isEstimate flag explicitly. Never omit it.`,
		},
		Reconciliation: StagePrompt{
			Temperature: 0.1,
			MaxTokens:   4096,
			System: "You are a revenue reconciliation analyst. Compare charged prices from a payment report " +
				"against an authoritative menu/pricing source and report every mismatch. " +
				"Always respond with a single valid JSON object.",
			UserTemplate: `Compare these report line items against the pricing source.

Report line items (JSON):
{{.ItemsJSON}}

Pricing source:
{{.MenuData}}

Rules:
- An item charged below its menu price is an "undercharge".
- An item charged above its menu price is an "overcharge".
- An item that appears in the report but not in the pricing source is "missing" (use 0 for menuPrice).

Return a JSON object with this exact structure:
{
  "discrepancies": [{"itemName": "string", "menuPrice": number, "chargedPrice": number, "difference": number, "type": "undercharge|overcharge|missing", "estimatedLoss": number}],
  "priorityActions": ["string"],
  "summary": "short narrative of the findings"
}`,
		},
	}
}
