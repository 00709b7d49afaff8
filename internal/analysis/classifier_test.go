package analysis

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nvoss/leakscope/internal/gateway"
	"github.com/nvoss/leakscope/internal/models"
)

func newTestClassifier(fake *fakeCompleter, maxChars int) *Classifier {
	return NewClassifier(fake, DefaultPrompts(), maxChars, zap.NewNop())
}

func TestClassify(t *testing.T) {
	fake := &fakeCompleter{}
	fake.script(`{"category":"payment_report","confidence":0.92,"reasoning":"weekly payout table","suggestedSection":"payments"}`)

	c := newTestClassifier(fake, 0)
	got, err := c.Classify(context.Background(), "Weekly payout: $1,200.00", "payouts-week-31.csv")
	require.NoError(t, err)

	assert.Equal(t, models.CategoryPaymentReport, got.Category)
	assert.Equal(t, 0.92, got.Confidence)
	assert.Equal(t, "weekly payout table", got.Reasoning)
	assert.Empty(t, got.Warnings)
}

func TestClassifyConfidenceClamped(t *testing.T) {
	tests := []struct {
		name       string
		confidence string
		want       float64
	}{
		{"above range", "1.4", 1},
		{"below range", "-0.2", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCompleter{}
			fake.script(`{"category":"invoice","confidence":` + tt.confidence + `,"reasoning":"","suggestedSection":""}`)

			got, err := newTestClassifier(fake, 0).Classify(context.Background(), "text", "a.pdf")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Confidence)
			require.Len(t, got.Warnings, 1)
			assert.Contains(t, got.Warnings[0], "clamped")
		})
	}
}

func TestClassifyUnknownCategoryIsSchemaViolation(t *testing.T) {
	fake := &fakeCompleter{}
	fake.script(`{"category":"tax_filing","confidence":0.9,"reasoning":"","suggestedSection":""}`)

	_, err := newTestClassifier(fake, 0).Classify(context.Background(), "text", "a.pdf")
	require.Error(t, err)
	assert.Equal(t, gateway.KindSchemaViolation, gateway.KindOf(err))
}

func TestClassifyMalformedBody(t *testing.T) {
	fake := &fakeCompleter{}
	fake.script(`I think this is probably a payment report.`)

	_, err := newTestClassifier(fake, 0).Classify(context.Background(), "text", "a.pdf")
	require.Error(t, err)
	assert.Equal(t, gateway.KindMalformedCompletion, gateway.KindOf(err))
}

func TestClassifyTruncatesLongDocuments(t *testing.T) {
	fake := &fakeCompleter{}
	fake.script(`{"category":"other","confidence":0.5,"reasoning":"","suggestedSection":""}`)

	long := strings.Repeat("x", 500)
	_, err := newTestClassifier(fake, 100).Classify(context.Background(), long, "big.txt")
	require.NoError(t, err)

	require.Len(t, fake.calls, 1)
	assert.Contains(t, fake.calls[0].User, strings.Repeat("x", 100))
	assert.NotContains(t, fake.calls[0].User, strings.Repeat("x", 101))
}

func TestClassifyGatewayErrorPassesThrough(t *testing.T) {
	fake := &fakeCompleter{}
	fake.scriptErr(gateway.NewError(gateway.KindRateLimited, "throttled", nil))

	_, err := newTestClassifier(fake, 0).Classify(context.Background(), "text", "a.pdf")
	require.Error(t, err)
	assert.Equal(t, gateway.KindRateLimited, gateway.KindOf(err))
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFences(tt.in))
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héllo", truncateRunes("héllo", 10))
	assert.Equal(t, "hé", truncateRunes("héllo", 2))
}
