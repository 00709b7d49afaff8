// Package gateway adapts the external natural-language completion service
// behind a provider-agnostic interface. Stage logic depends only on Completer,
// so alternate providers can be substituted without touching any stage.
package gateway

import (
	"context"

	"github.com/nvoss/leakscope/internal/models"
)

// CompletionRequest is a single buffered completion call.
type CompletionRequest struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
	// JSONMode forces the provider to emit a single JSON object body.
	JSONMode bool
}

// Stream yields assistant output incrementally. Recv returns the next token
// chunk and io.EOF when the reply is complete; any other error means the
// stream failed mid-flight and the partial output must be treated as such.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Completer is the completion capability consumed by every analysis stage.
type Completer interface {
	// Complete performs a buffered exchange and returns the full text body.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// StreamComplete opens a streaming exchange over the given ordered turns.
	// The caller owns the returned stream and must Close it.
	StreamComplete(ctx context.Context, turns []models.ChatTurn) (Stream, error)
}
