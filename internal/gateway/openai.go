package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/nvoss/leakscope/internal/models"
)

// Config holds OpenAI gateway configuration.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAIGateway implements Completer against the OpenAI chat completion API.
type OpenAIGateway struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewOpenAIGateway creates a gateway backed by the OpenAI API.
func NewOpenAIGateway(cfg Config, logger *zap.Logger) (*OpenAIGateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIGateway{
		client:  openai.NewClient(cfg.APIKey),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Complete performs a buffered chat completion and returns the full body.
func (g *OpenAIGateway) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		g.logger.Error("Completion call failed",
			zap.String("model", g.model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", mapProviderError(err)
	}

	if len(resp.Choices) == 0 {
		return "", NewError(KindMalformedCompletion, "provider returned no choices", nil)
	}

	g.logger.Debug("Completion call succeeded",
		zap.String("model", g.model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return resp.Choices[0].Message.Content, nil
}

// StreamComplete opens a streaming chat completion over the given turns. The
// raw token stream is handed to the caller unmodified; transport errors
// mid-stream surface through Recv.
func (g *OpenAIGateway) StreamComplete(ctx context.Context, turns []models.ChatTurn) (Stream, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}

	stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		g.logger.Error("Failed to open completion stream", zap.Error(err))
		return nil, mapProviderError(err)
	}

	return &openaiStream{inner: stream}, nil
}

// openaiStream adapts the SDK stream to the Stream interface, yielding only
// the delta text of each event.
type openaiStream struct {
	inner *openai.ChatCompletionStream
}

func (s *openaiStream) Recv() (string, error) {
	for {
		resp, err := s.inner.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", mapProviderError(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *openaiStream) Close() error {
	return s.inner.Close()
}

// mapProviderError translates provider-specific failures into domain kinds.
func mapProviderError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindTimeout, "upstream call exceeded deadline", err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 402:
			return NewError(KindQuotaExhausted, "provider quota exhausted", err)
		case apiErr.HTTPStatusCode == 429:
			// OpenAI reports exhausted credit as a 429 with a distinct code.
			if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
				return NewError(KindQuotaExhausted, "provider quota exhausted", err)
			}
			return NewError(KindRateLimited, "provider rate limit exceeded", err)
		default:
			return NewError(KindUpstream, fmt.Sprintf("provider returned status %d", apiErr.HTTPStatusCode), err)
		}
	}

	return NewError(KindUpstream, "completion request failed", err)
}
