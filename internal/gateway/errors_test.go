package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func TestMapProviderError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantKind      Kind
		wantRetryable bool
	}{
		{
			name:          "429 maps to rate limited and is retryable",
			err:           &openai.APIError{HTTPStatusCode: 429, Message: "slow down"},
			wantKind:      KindRateLimited,
			wantRetryable: true,
		},
		{
			name:          "429 with insufficient_quota maps to quota exhausted",
			err:           &openai.APIError{HTTPStatusCode: 429, Code: "insufficient_quota"},
			wantKind:      KindQuotaExhausted,
			wantRetryable: false,
		},
		{
			name:          "402 maps to quota exhausted and must not retry",
			err:           &openai.APIError{HTTPStatusCode: 402, Message: "payment required"},
			wantKind:      KindQuotaExhausted,
			wantRetryable: false,
		},
		{
			name:          "500 maps to generic upstream failure",
			err:           &openai.APIError{HTTPStatusCode: 500, Message: "boom"},
			wantKind:      KindUpstream,
			wantRetryable: true,
		},
		{
			name:          "deadline exceeded maps to timeout",
			err:           fmt.Errorf("call: %w", context.DeadlineExceeded),
			wantKind:      KindTimeout,
			wantRetryable: true,
		},
		{
			name:          "transport error maps to upstream",
			err:           errors.New("connection reset"),
			wantKind:      KindUpstream,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := mapProviderError(tt.err)
			assert.Equal(t, tt.wantKind, KindOf(mapped))
			assert.Equal(t, tt.wantRetryable, IsRetryable(mapped))
		})
	}
}

func TestRateLimitDistinguishableFromQuotaByKind(t *testing.T) {
	rateLimited := mapProviderError(&openai.APIError{HTTPStatusCode: 429})
	quota := mapProviderError(&openai.APIError{HTTPStatusCode: 402})

	assert.NotEqual(t, KindOf(rateLimited), KindOf(quota))
	assert.True(t, IsRetryable(rateLimited))
	assert.False(t, IsRetryable(quota))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewError(KindUpstream, "wrapped", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "upstream_failure")
	assert.Contains(t, err.Error(), "root cause")
}

func TestKindOfNonGatewayError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.False(t, IsRetryable(errors.New("plain")))
}
