package models

// Document is an uploaded file reduced to its analyzable text. Immutable once
// created; the orchestrator owns it for the duration of a pipeline run.
type Document struct {
	ID          string `json:"id"`
	FileName    string `json:"fileName"`
	FileType    string `json:"fileType,omitempty"`
	TextContent string `json:"textContent"`
}

// Document category constants. The taxonomy is closed: a category outside this
// set coming back from the model is a schema violation, never auto-corrected.
const (
	CategoryPaymentReport = "payment_report"
	CategoryBankStatement = "bank_statement"
	CategoryInvoice       = "invoice"
	CategoryReceipt       = "receipt"
	CategoryPricingList   = "pricing_list"
	CategoryRefundRecord  = "refund_record"
	CategoryOther         = "other"
)

// Categories lists every valid document category.
var Categories = []string{
	CategoryPaymentReport,
	CategoryBankStatement,
	CategoryInvoice,
	CategoryReceipt,
	CategoryPricingList,
	CategoryRefundRecord,
	CategoryOther,
}

// ValidCategory reports whether c belongs to the closed taxonomy.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Classification assigns a document to a category. Produced once per document
// and never mutated afterwards.
type Classification struct {
	DocumentID       string   `json:"documentId"`
	Category         string   `json:"category"`
	Confidence       float64  `json:"confidence"`
	Reasoning        string   `json:"reasoning"`
	SuggestedSection string   `json:"suggestedSection"`
	Warnings         []string `json:"warnings,omitempty"`
}
