package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nvoss/leakscope/internal/gateway"
	"github.com/nvoss/leakscope/internal/models"
)

const fullExtraction = `{
  "totalRevenue": {"value": 5200, "isEstimate": false, "source": "verified"},
  "totalFees": {"value": 780, "isEstimate": true, "source": "inferred"},
  "totalPromos": {"value": 340, "isEstimate": true, "source": "inferred"},
  "totalRefunds": {"value": 95, "isEstimate": false, "source": "verified"},
  "netProfit": {"value": 3985, "isEstimate": true, "source": "inferred"},
  "issues": [{"type": "fee_discrepancy", "description": "commission charged at 32% instead of 30%", "potentialRecovery": 104}],
  "items": [{"name": "Pad Thai", "quantity": 40, "revenue": 560, "profit": 220, "isEstimate": true}],
  "recommendations": ["Dispute the commission rate with the platform"]
}`

func newTestExtractor(fake *fakeCompleter) *Extractor {
	return NewExtractor(fake, DefaultPrompts(), zap.NewNop())
}

func TestExtract(t *testing.T) {
	fake := &fakeCompleter{}
	fake.script(fullExtraction)

	got, err := newTestExtractor(fake).Extract(context.Background(), "report text", "payment_report")
	require.NoError(t, err)

	assert.Equal(t, 5200.0, got.TotalRevenue.Value)
	assert.False(t, got.TotalRevenue.IsEstimate)
	assert.True(t, got.TotalFees.IsEstimate)
	assert.True(t, got.NetProfit.IsEstimate)
	require.Len(t, got.Issues, 1)
	assert.Equal(t, 104.0, got.Issues[0].PotentialRecovery)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Pad Thai", got.Items[0].Name)
}

func TestExtractMissingEstimateFlagIsSchemaViolation(t *testing.T) {
	fake := &fakeCompleter{}
	// totalRevenue has no isEstimate flag at all.
	fake.script(`{
	  "totalRevenue": {"value": 5200, "source": "verified"},
	  "totalFees": {"value": 780, "isEstimate": true},
	  "totalPromos": {"value": 340, "isEstimate": true},
	  "totalRefunds": {"value": 95, "isEstimate": true},
	  "netProfit": {"value": 3985, "isEstimate": true},
	  "issues": [], "items": [], "recommendations": []
	}`)

	_, err := newTestExtractor(fake).Extract(context.Background(), "report", "")
	require.Error(t, err)
	assert.Equal(t, gateway.KindSchemaViolation, gateway.KindOf(err))
	assert.Contains(t, err.Error(), "totalRevenue")
}

func TestExtractLineItemMissingFlagDefaultsToEstimate(t *testing.T) {
	fake := &fakeCompleter{}
	// First item omits isEstimate entirely; the others mark it explicitly.
	fake.script(`{
	  "totalRevenue": {"value": 5200, "isEstimate": true},
	  "totalFees": {"value": 780, "isEstimate": true},
	  "totalPromos": {"value": 340, "isEstimate": true},
	  "totalRefunds": {"value": 95, "isEstimate": true},
	  "netProfit": {"value": 3985, "isEstimate": true},
	  "issues": [],
	  "items": [
	    {"name": "Pad Thai", "quantity": 40, "revenue": 560, "profit": 220},
	    {"name": "Green Curry", "quantity": 20, "revenue": 300, "profit": 120, "isEstimate": false},
	    {"name": "Spring Rolls", "quantity": 30, "revenue": 180, "profit": 90, "isEstimate": true}
	  ],
	  "recommendations": []
	}`)

	got, err := newTestExtractor(fake).Extract(context.Background(), "report", "")
	require.NoError(t, err)

	require.Len(t, got.Items, 3)
	assert.True(t, got.Items[0].IsEstimate, "an unmarked line item must not surface as verified")
	assert.False(t, got.Items[1].IsEstimate)
	assert.True(t, got.Items[2].IsEstimate)
}

func TestExtractUnverifiedFalseFlagForcedToEstimate(t *testing.T) {
	fake := &fakeCompleter{}
	// Model claims a verified figure without marking the source verified.
	fake.script(`{
	  "totalRevenue": {"value": 5200, "isEstimate": false, "source": "inferred"},
	  "totalFees": {"value": 780, "isEstimate": false},
	  "totalPromos": {"value": 340, "isEstimate": true},
	  "totalRefunds": {"value": 95, "isEstimate": true},
	  "netProfit": {"value": 3985, "isEstimate": true},
	  "issues": [], "items": [], "recommendations": []
	}`)

	got, err := newTestExtractor(fake).Extract(context.Background(), "report", "")
	require.NoError(t, err)
	assert.True(t, got.TotalRevenue.IsEstimate, "inferred source must not produce a verified figure")
	assert.True(t, got.TotalFees.IsEstimate, "absent source marking defaults to estimate")
}

func TestExtractInvalidIssueTypeIsSchemaViolation(t *testing.T) {
	fake := &fakeCompleter{}
	fake.script(`{
	  "totalRevenue": {"value": 1, "isEstimate": true},
	  "totalFees": {"value": 1, "isEstimate": true},
	  "totalPromos": {"value": 1, "isEstimate": true},
	  "totalRefunds": {"value": 1, "isEstimate": true},
	  "netProfit": {"value": 1, "isEstimate": true},
	  "issues": [{"type": "vibes", "description": "", "potentialRecovery": 0}],
	  "items": [], "recommendations": []
	}`)

	_, err := newTestExtractor(fake).Extract(context.Background(), "report", "")
	require.Error(t, err)
	assert.Equal(t, gateway.KindSchemaViolation, gateway.KindOf(err))
}

func TestExtractMalformedBody(t *testing.T) {
	fake := &fakeCompleter{}
	fake.script(`not json at all`)

	_, err := newTestExtractor(fake).Extract(context.Background(), "report", "")
	require.Error(t, err)
	assert.Equal(t, gateway.KindMalformedCompletion, gateway.KindOf(err))
}

func TestExtractNilCollectionsBecomeEmpty(t *testing.T) {
	fake := &fakeCompleter{}
	fake.script(`{
	  "totalRevenue": {"value": 1, "isEstimate": true},
	  "totalFees": {"value": 1, "isEstimate": true},
	  "totalPromos": {"value": 1, "isEstimate": true},
	  "totalRefunds": {"value": 1, "isEstimate": true},
	  "netProfit": {"value": 1, "isEstimate": true}
	}`)

	got, err := newTestExtractor(fake).Extract(context.Background(), "report", "")
	require.NoError(t, err)
	assert.NotNil(t, got.Issues)
	assert.NotNil(t, got.Items)
	assert.NotNil(t, got.Recommendations)
}

func TestMonetaryEstimateAddPropagatesFlag(t *testing.T) {
	a := models.MonetaryEstimate{Value: 10, IsEstimate: false}
	b := models.MonetaryEstimate{Value: 5, IsEstimate: true}

	sum := a.Add(b)
	assert.Equal(t, 15.0, sum.Value)
	assert.True(t, sum.IsEstimate, "a sum including an estimate is itself an estimate")

	exact := a.Add(models.MonetaryEstimate{Value: 2, IsEstimate: false})
	assert.False(t, exact.IsEstimate)
}
