package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nvoss/leakscope/internal/gateway"
	"github.com/nvoss/leakscope/internal/models"
)

// Reconciler compares extracted line items against an independent pricing
// source and reports discrepancies with a recoverable total.
type Reconciler struct {
	gw     gateway.Completer
	prompt StagePrompt
	logger *zap.Logger
}

// NewReconciler creates a reconciliation stage.
func NewReconciler(gw gateway.Completer, prompts *PromptConfig, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		gw:     gw,
		prompt: prompts.Reconciliation,
		logger: logger,
	}
}

// discrepancyWire is the model's schema for a single discrepancy.
type discrepancyWire struct {
	ItemName      string  `json:"itemName"`
	MenuPrice     float64 `json:"menuPrice"`
	ChargedPrice  float64 `json:"chargedPrice"`
	Difference    float64 `json:"difference"`
	Type          string  `json:"type"`
	EstimatedLoss float64 `json:"estimatedLoss"`
}

// reconciliationWire is the model's response schema.
type reconciliationWire struct {
	Discrepancies   []discrepancyWire `json:"discrepancies"`
	PriorityActions []string          `json:"priorityActions"`
	Summary         string            `json:"summary"`
}

// Reconcile diffs the summaries' line items against the pricing source. The
// result is recomputed wholesale on every invocation; nothing is patched.
func (r *Reconciler) Reconcile(ctx context.Context, summaries []*models.ExtractionSummary, menuData string) (*models.ReconciliationResult, error) {
	var items []models.LineItem
	for _, summary := range summaries {
		items = append(items, summary.Items...)
	}

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode line items: %w", err)
	}

	user, err := renderTemplate(r.prompt.UserTemplate, map[string]string{
		"ItemsJSON": string(itemsJSON),
		"MenuData":  menuData,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build reconciliation prompt: %w", err)
	}

	body, err := r.gw.Complete(ctx, gateway.CompletionRequest{
		System:      r.prompt.System,
		User:        user,
		Temperature: r.prompt.Temperature,
		MaxTokens:   r.prompt.MaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}

	var wire reconciliationWire
	if err := json.Unmarshal([]byte(stripCodeFences(body)), &wire); err != nil {
		r.logger.Error("Failed to parse reconciliation response", zap.Error(err))
		return nil, gateway.NewError(gateway.KindMalformedCompletion, "reconciliation response is not valid JSON", err)
	}

	result := &models.ReconciliationResult{
		Discrepancies:   make([]models.Discrepancy, 0, len(wire.Discrepancies)),
		PriorityActions: wire.PriorityActions,
		Summary:         wire.Summary,
	}
	if result.PriorityActions == nil {
		result.PriorityActions = []string{}
	}

	var overcharged []string
	total := 0.0
	for _, d := range wire.Discrepancies {
		normalized, ok := normalizeDiscrepancy(d)
		if !ok {
			continue
		}
		if normalized.Type == models.DiscrepancyOvercharge {
			overcharged = append(overcharged, normalized.ItemName)
		}
		total += normalized.EstimatedLoss
		result.Discrepancies = append(result.Discrepancies, normalized)
	}

	// Overcharges carry customer-dispute risk and are surfaced separately from
	// under-collection.
	if len(overcharged) > 0 {
		result.PriorityActions = append(result.PriorityActions,
			fmt.Sprintf("Review overcharged items (dispute risk): %s", strings.Join(overcharged, ", ")))
	}

	// The recoverable total is always the signed sum of the individual losses,
	// and always an estimate: it derives from cross-document inference.
	result.TotalEstimatedRecovery = models.MonetaryEstimate{Value: total, IsEstimate: true}

	r.logger.Info("Reconciliation completed",
		zap.Int("discrepancy_count", len(result.Discrepancies)),
		zap.Float64("total_estimated_recovery", total))

	return result, nil
}

// normalizeDiscrepancy enforces the discrepancy type policy from the charged
// and menu prices instead of trusting the model's label. A non-missing item
// charged exactly at menu price is not a discrepancy and is dropped.
func normalizeDiscrepancy(w discrepancyWire) (models.Discrepancy, bool) {
	d := models.Discrepancy{
		ItemName:      w.ItemName,
		MenuPrice:     w.MenuPrice,
		ChargedPrice:  w.ChargedPrice,
		Difference:    w.ChargedPrice - w.MenuPrice,
		EstimatedLoss: w.EstimatedLoss,
		IsEstimate:    true,
	}

	switch {
	case w.Type == models.DiscrepancyMissing:
		d.Type = models.DiscrepancyMissing
	case w.ChargedPrice < w.MenuPrice:
		d.Type = models.DiscrepancyUndercharge
	case w.ChargedPrice > w.MenuPrice:
		d.Type = models.DiscrepancyOvercharge
	default:
		return models.Discrepancy{}, false
	}

	return d, true
}
