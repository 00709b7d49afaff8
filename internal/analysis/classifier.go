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

// DefaultClassifyMaxChars is the character budget handed to the model for
// classification. Longer documents are truncated, not rejected.
const DefaultClassifyMaxChars = 8000

// Classifier assigns uploaded documents to the closed category taxonomy.
type Classifier struct {
	gw       gateway.Completer
	prompt   StagePrompt
	maxChars int
	logger   *zap.Logger
}

// NewClassifier creates a classifier stage. A non-positive maxChars falls back
// to DefaultClassifyMaxChars.
func NewClassifier(gw gateway.Completer, prompts *PromptConfig, maxChars int, logger *zap.Logger) *Classifier {
	if maxChars <= 0 {
		maxChars = DefaultClassifyMaxChars
	}
	return &Classifier{
		gw:       gw,
		prompt:   prompts.Classification,
		maxChars: maxChars,
		logger:   logger,
	}
}

// classificationWire is the model's response schema.
type classificationWire struct {
	Category         string  `json:"category"`
	Confidence       float64 `json:"confidence"`
	Reasoning        string  `json:"reasoning"`
	SuggestedSection string  `json:"suggestedSection"`
}

// Classify assigns the document text to a category with a confidence score.
func (c *Classifier) Classify(ctx context.Context, textContent, fileName string) (*models.Classification, error) {
	truncated := truncateRunes(textContent, c.maxChars)

	user, err := renderTemplate(c.prompt.UserTemplate, map[string]string{
		"FileName": fileName,
		"Content":  truncated,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build classification prompt: %w", err)
	}

	body, err := c.gw.Complete(ctx, gateway.CompletionRequest{
		System:      c.prompt.System,
		User:        user,
		Temperature: c.prompt.Temperature,
		MaxTokens:   c.prompt.MaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}

	var wire classificationWire
	if err := json.Unmarshal([]byte(stripCodeFences(body)), &wire); err != nil {
		c.logger.Error("Failed to parse classification response",
			zap.String("file_name", fileName),
			zap.Error(err))
		return nil, gateway.NewError(gateway.KindMalformedCompletion, "classification response is not valid JSON", err)
	}

	// The taxonomy is closed: an unknown category is a violation, not a fixup.
	if !models.ValidCategory(wire.Category) {
		return nil, gateway.NewError(gateway.KindSchemaViolation,
			fmt.Sprintf("category %q is outside the taxonomy", wire.Category), nil)
	}

	classification := &models.Classification{
		Category:         wire.Category,
		Confidence:       wire.Confidence,
		Reasoning:        wire.Reasoning,
		SuggestedSection: wire.SuggestedSection,
	}

	// Classification is best-effort, not load-bearing for money calculations:
	// out-of-range confidence is clamped with a warning instead of failing.
	if wire.Confidence < 0 {
		classification.Confidence = 0
		classification.Warnings = append(classification.Warnings,
			fmt.Sprintf("confidence %.2f below range, clamped to 0", wire.Confidence))
	} else if wire.Confidence > 1 {
		classification.Confidence = 1
		classification.Warnings = append(classification.Warnings,
			fmt.Sprintf("confidence %.2f above range, clamped to 1", wire.Confidence))
	}

	c.logger.Info("Document classified",
		zap.String("file_name", fileName),
		zap.String("category", classification.Category),
		zap.Float64("confidence", classification.Confidence))

	return classification, nil
}

// truncateRunes cuts s to at most max runes. Deterministic: same input, same cut.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// stripCodeFences removes a surrounding markdown code fence if the model
// wrapped its JSON body in one.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
