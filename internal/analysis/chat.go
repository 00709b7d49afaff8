package analysis

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nvoss/leakscope/internal/gateway"
	"github.com/nvoss/leakscope/internal/models"
)

// NoAnalysisNotice is embedded in the system turn when no pipeline state is
// available, so the assistant never fabricates findings.
const NoAnalysisNotice = "No analysis has been run yet. Do not state or invent any figures; tell the user to upload and analyze documents first."

// ChatStage answers free-form questions grounded in the accumulated pipeline
// state, streaming the reply token by token.
type ChatStage struct {
	gw     gateway.Completer
	logger *zap.Logger
}

// NewChatStage creates the conversational context stage.
func NewChatStage(gw gateway.Completer, logger *zap.Logger) *ChatStage {
	return &ChatStage{gw: gw, logger: logger}
}

// BuildSystemTurn regenerates the system turn from the current context. It is
// never stored: each request reflects the latest aggregate state.
func (s *ChatStage) BuildSystemTurn(convCtx *models.ConversationContext) models.ChatTurn {
	var b strings.Builder
	b.WriteString("You are a revenue-leak analyst for a restaurant. ")
	b.WriteString("Answer questions only from the analysis state below; never invent figures.\n\n")

	if convCtx == nil || (len(convCtx.FileNames) == 0 && convCtx.AnalysisResults == nil) {
		b.WriteString(NoAnalysisNotice)
		return models.ChatTurn{Role: models.RoleSystem, Content: b.String()}
	}

	if len(convCtx.FileNames) > 0 {
		b.WriteString("Documents analyzed: ")
		b.WriteString(strings.Join(convCtx.FileNames, ", "))
		b.WriteString("\n")
	}
	if len(convCtx.Categories) > 0 {
		b.WriteString("Document categories:\n")
		for id, category := range convCtx.Categories {
			fmt.Fprintf(&b, "- %s: %s\n", id, category)
		}
	}
	if convCtx.AnalysisResults != nil {
		fmt.Fprintf(&b, "Revenue leaks found: %d\n", convCtx.AnalysisResults.TotalLeaks)
		fmt.Fprintf(&b, "Total recoverable: $%.2f (estimate)\n", convCtx.AnalysisResults.TotalRecoverable)
		if convCtx.AnalysisResults.Summary != "" {
			fmt.Fprintf(&b, "Summary: %s\n", convCtx.AnalysisResults.Summary)
		}
	} else {
		b.WriteString(NoAnalysisNotice)
	}

	return models.ChatTurn{Role: models.RoleSystem, Content: b.String()}
}

// Respond opens a streaming reply to the user's message. History is treated
// as an immutable snapshot; the fresh system turn goes first, prior turns
// follow in order, and the new user turn comes last. The first token reaches
// the caller as soon as the provider emits it.
func (s *ChatStage) Respond(ctx context.Context, message string, convCtx *models.ConversationContext, history []models.ChatTurn) (gateway.Stream, error) {
	turns := make([]models.ChatTurn, 0, len(history)+2)
	turns = append(turns, s.BuildSystemTurn(convCtx))
	turns = append(turns, history...)
	turns = append(turns, models.ChatTurn{Role: models.RoleUser, Content: message})

	s.logger.Info("Opening chat stream",
		zap.Int("history_turns", len(history)),
		zap.Bool("has_analysis", convCtx != nil && convCtx.AnalysisResults != nil))

	return s.gw.StreamComplete(ctx, turns)
}
