package models

// MonetaryEstimate is the atomic unit of every financial figure in the system.
// A figure derived purely from model inference carries IsEstimate=true; only a
// figure traceable to an explicit line in verified source data may carry false.
// The flag propagates through every aggregation: a sum that includes at least
// one estimate is itself an estimate.
type MonetaryEstimate struct {
	Value      float64 `json:"value"`
	IsEstimate bool    `json:"isEstimate"`
}

// Add returns the sum of two monetary figures with the estimate flag propagated.
func (m MonetaryEstimate) Add(other MonetaryEstimate) MonetaryEstimate {
	return MonetaryEstimate{
		Value:      m.Value + other.Value,
		IsEstimate: m.IsEstimate || other.IsEstimate,
	}
}

// Issue type constants.
const (
	IssuePricingError   = "pricing_error"
	IssueMissedRefund   = "missed_refund"
	IssueFeeDiscrepancy = "fee_discrepancy"
	IssuePromoLoss      = "promo_loss"
)

// Issue is a detected revenue problem in a single report.
type Issue struct {
	Type              string  `json:"type"`
	Description       string  `json:"description"`
	PotentialRecovery float64 `json:"potentialRecovery"`
}

// LineItem is one itemized entry extracted from a report.
type LineItem struct {
	Name       string  `json:"name"`
	Quantity   float64 `json:"quantity"`
	Revenue    float64 `json:"revenue"`
	Profit     float64 `json:"profit"`
	IsEstimate bool    `json:"isEstimate"`
}

// ExtractionSummary is the structured financial summary of a single document.
type ExtractionSummary struct {
	DocumentID      string           `json:"documentId,omitempty"`
	TotalRevenue    MonetaryEstimate `json:"totalRevenue"`
	TotalFees       MonetaryEstimate `json:"totalFees"`
	TotalPromos     MonetaryEstimate `json:"totalPromos"`
	TotalRefunds    MonetaryEstimate `json:"totalRefunds"`
	NetProfit       MonetaryEstimate `json:"netProfit"`
	Issues          []Issue          `json:"issues"`
	Items           []LineItem       `json:"items"`
	Recommendations []string         `json:"recommendations"`
}

// Discrepancy type constants.
const (
	DiscrepancyUndercharge = "undercharge"
	DiscrepancyOvercharge  = "overcharge"
	DiscrepancyMissing     = "missing"
)

// Discrepancy is a mismatch between a charged price and the pricing source.
// Always an estimate by construction: it derives from a cross-document
// inference, not ground truth.
type Discrepancy struct {
	ItemName      string  `json:"itemName"`
	MenuPrice     float64 `json:"menuPrice"`
	ChargedPrice  float64 `json:"chargedPrice"`
	Difference    float64 `json:"difference"`
	Type          string  `json:"type"`
	EstimatedLoss float64 `json:"estimatedLoss"`
	IsEstimate    bool    `json:"isEstimate"`
}

// ReconciliationResult aggregates discrepancies between a report and a
// pricing source. Recomputed wholesale on each invocation.
type ReconciliationResult struct {
	Discrepancies          []Discrepancy    `json:"discrepancies"`
	TotalEstimatedRecovery MonetaryEstimate `json:"totalEstimatedRecovery"`
	PriorityActions        []string         `json:"priorityActions"`
	Summary                string           `json:"summary"`
}

// DocumentResult pairs a document's classification with its extraction.
type DocumentResult struct {
	Document       Document           `json:"document"`
	Classification *Classification    `json:"classification"`
	Extraction     *ExtractionSummary `json:"extraction"`
}

// DocumentFailure records a per-document pipeline failure without aborting
// the sibling documents in the batch.
type DocumentFailure struct {
	FileName string `json:"fileName"`
	Stage    string `json:"stage"`
	Error    string `json:"error"`
}

// BatchResult accumulates the per-document outcomes of an orchestrator run.
// Successful results preserve the input ordering.
type BatchResult struct {
	Results  []DocumentResult  `json:"results"`
	Failures []DocumentFailure `json:"failures"`
}
