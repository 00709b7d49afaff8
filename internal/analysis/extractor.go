package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/nvoss/leakscope/internal/gateway"
	"github.com/nvoss/leakscope/internal/models"
)

// Extractor turns raw report text into a structured financial summary.
type Extractor struct {
	gw     gateway.Completer
	prompt StagePrompt
	logger *zap.Logger
}

// NewExtractor creates an extraction stage.
func NewExtractor(gw gateway.Completer, prompts *PromptConfig, logger *zap.Logger) *Extractor {
	return &Extractor{
		gw:     gw,
		prompt: prompts.Extraction,
		logger: logger,
	}
}

// monetaryWire is the model's schema for a single monetary figure. IsEstimate
// is a pointer so an omitted flag is detectable and rejected.
type monetaryWire struct {
	Value      float64 `json:"value"`
	IsEstimate *bool   `json:"isEstimate"`
	Source     string  `json:"source"`
}

// itemWire is the model's schema for a single line item. IsEstimate is a
// pointer so an omitted flag never decodes to a silently verified figure.
type itemWire struct {
	Name       string  `json:"name"`
	Quantity   float64 `json:"quantity"`
	Revenue    float64 `json:"revenue"`
	Profit     float64 `json:"profit"`
	IsEstimate *bool   `json:"isEstimate"`
}

// extractionWire is the model's response schema.
type extractionWire struct {
	TotalRevenue    monetaryWire   `json:"totalRevenue"`
	TotalFees       monetaryWire   `json:"totalFees"`
	TotalPromos     monetaryWire   `json:"totalPromos"`
	TotalRefunds    monetaryWire   `json:"totalRefunds"`
	NetProfit       monetaryWire   `json:"netProfit"`
	Issues          []models.Issue `json:"issues"`
	Items           []itemWire     `json:"items"`
	Recommendations []string       `json:"recommendations"`
}

// Extract produces an ExtractionSummary from raw report content. The parsed
// response is post-validated: the stage never trusts the model to police its
// own estimate flags.
func (e *Extractor) Extract(ctx context.Context, reportContent, reportType string) (*models.ExtractionSummary, error) {
	user, err := renderTemplate(e.prompt.UserTemplate, map[string]string{
		"Content":    reportContent,
		"ReportType": reportType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build extraction prompt: %w", err)
	}

	body, err := e.gw.Complete(ctx, gateway.CompletionRequest{
		System:      e.prompt.System,
		User:        user,
		Temperature: e.prompt.Temperature,
		MaxTokens:   e.prompt.MaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}

	var wire extractionWire
	if err := json.Unmarshal([]byte(stripCodeFences(body)), &wire); err != nil {
		e.logger.Error("Failed to parse extraction response", zap.Error(err))
		return nil, gateway.NewError(gateway.KindMalformedCompletion, "extraction response is not valid JSON", err)
	}

	summary := &models.ExtractionSummary{
		Issues:          wire.Issues,
		Items:           make([]models.LineItem, 0, len(wire.Items)),
		Recommendations: wire.Recommendations,
	}
	if summary.Issues == nil {
		summary.Issues = []models.Issue{}
	}
	for _, item := range wire.Items {
		// An item the model forgot to mark defaults to an estimate; it never
		// passes as verified by omission.
		est := true
		if item.IsEstimate != nil {
			est = *item.IsEstimate
		}
		summary.Items = append(summary.Items, models.LineItem{
			Name:       item.Name,
			Quantity:   item.Quantity,
			Revenue:    item.Revenue,
			Profit:     item.Profit,
			IsEstimate: est,
		})
	}
	if summary.Recommendations == nil {
		summary.Recommendations = []string{}
	}

	fields := []struct {
		name string
		wire monetaryWire
		dst  *models.MonetaryEstimate
	}{
		{"totalRevenue", wire.TotalRevenue, &summary.TotalRevenue},
		{"totalFees", wire.TotalFees, &summary.TotalFees},
		{"totalPromos", wire.TotalPromos, &summary.TotalPromos},
		{"totalRefunds", wire.TotalRefunds, &summary.TotalRefunds},
		{"netProfit", wire.NetProfit, &summary.NetProfit},
	}
	for _, f := range fields {
		est, err := validateMonetary(f.name, f.wire)
		if err != nil {
			return nil, err
		}
		*f.dst = est
	}

	for _, issue := range summary.Issues {
		if !validIssueType(issue.Type) {
			return nil, gateway.NewError(gateway.KindSchemaViolation,
				fmt.Sprintf("issue type %q is outside the taxonomy", issue.Type), nil)
		}
	}

	e.logger.Info("Report extracted",
		zap.Float64("total_revenue", summary.TotalRevenue.Value),
		zap.Float64("net_profit", summary.NetProfit.Value),
		zap.Int("issue_count", len(summary.Issues)),
		zap.Int("item_count", len(summary.Items)))

	return summary, nil
}

// validateMonetary enforces the estimate-flag policy: an absent flag is a
// schema violation, and isEstimate=false survives only when the model
// explicitly marked the value as verified source data. The stage never infers
// a verified figure on its own.
func validateMonetary(name string, w monetaryWire) (models.MonetaryEstimate, error) {
	if w.IsEstimate == nil {
		return models.MonetaryEstimate{}, gateway.NewError(gateway.KindSchemaViolation,
			fmt.Sprintf("field %s is missing the isEstimate flag", name), nil)
	}

	est := models.MonetaryEstimate{Value: w.Value, IsEstimate: *w.IsEstimate}
	if !est.IsEstimate && w.Source != "verified" {
		est.IsEstimate = true
	}
	return est, nil
}

func validIssueType(t string) bool {
	switch t {
	case models.IssuePricingError, models.IssueMissedRefund, models.IssueFeeDiscrepancy, models.IssuePromoLoss:
		return true
	}
	return false
}
