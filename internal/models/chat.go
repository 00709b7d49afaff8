package models

// Chat role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is a single message in a conversation. History is append-only; the
// system turn is regenerated fresh per request and never stored.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnalysisSnapshot is the condensed view of accumulated findings embedded in
// the chat system turn.
type AnalysisSnapshot struct {
	TotalLeaks       int     `json:"totalLeaks"`
	TotalRecoverable float64 `json:"totalRecoverable"`
	Summary          string  `json:"summary"`
}

// ConversationContext is a read-only projection of the accumulated pipeline
// state, rebuilt on demand and never independently mutated.
type ConversationContext struct {
	FileNames       []string          `json:"fileNames"`
	Categories      map[string]string `json:"categories"`
	AnalysisResults *AnalysisSnapshot `json:"analysisResults,omitempty"`
}
