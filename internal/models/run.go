package models

import "time"

// AnalysisRun is the persisted projection of one completed document pipeline
// run. Only derived summary figures are stored; document content never is.
type AnalysisRun struct {
	ID               string    `json:"id"`
	FileName         string    `json:"fileName"`
	Category         string    `json:"category"`
	Confidence       float64   `json:"confidence"`
	TotalRevenue     float64   `json:"totalRevenue"`
	NetProfit        float64   `json:"netProfit"`
	TotalRecoverable float64   `json:"totalRecoverable"`
	IsEstimate       bool      `json:"isEstimate"`
	IssueCount       int       `json:"issueCount"`
	CreatedAt        time.Time `json:"createdAt"`
}
