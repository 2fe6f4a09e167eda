package service

import (
	"context"
	"encoding/json"
	"testing"

	"ai-studytool-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolPricing(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		want     map[string]float64
		rejected []string
		wantErr  bool
	}{
		{"integers", `{"summary": 1, "questions": 2}`, map[string]float64{"summary": 1, "questions": 2}, nil, false},
		{"fractional", `{"summary": 1.5}`, map[string]float64{"summary": 1.5}, nil, false},
		{"numeric string", `{"explain": "0.5"}`, map[string]float64{"explain": 0.5}, nil, false},
		{"bad entries skipped", `{"summary": 1, "rewrite": -2, "explain": "cheap", "questions": null}`, map[string]float64{"summary": 1}, []string{"explain", "questions", "rewrite"}, false},
		{"not an object", `[1, 2]`, nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pricing, rejected, err := ParseToolPricing(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, pricing)
			assert.Equal(t, tt.rejected, rejected)
		})
	}
}

func TestFractionalBasePriceIsChargedRoundedUp(t *testing.T) {
	f := newFixture(0)
	f.store.creditConfigs[entity.CreditConfigToolPricing] = &entity.CreditConfig{
		Key:   entity.CreditConfigToolPricing,
		Value: json.RawMessage(`{"summary": 1.5, "explain": 0.4}`),
	}
	f.setTool("summary", true, 1.0, 0)
	f.setTool("explain", true, 2.0, 0)
	ctx := context.Background()

	assert.Equal(t, 2, f.wallet.GetCreditCost(ctx, "summary"))
	assert.Equal(t, 1, f.wallet.GetCreditCost(ctx, "explain"))

	costs := f.wallet.GetCreditCosts(ctx)
	require.Len(t, costs, 2)
	assert.Equal(t, 0.4, costs[0].BaseCost)
	assert.Equal(t, 1.5, costs[1].BaseCost)
}

func TestBadPricingRowKeepsToolSettings(t *testing.T) {
	f := newFixture(10)
	f.store.creditConfigs[entity.CreditConfigToolPricing] = &entity.CreditConfig{
		Key:   entity.CreditConfigToolPricing,
		Value: json.RawMessage(`{"summary": 3, "questions": "lots"}`),
	}
	f.store.creditConfigs[entity.CreditConfigDailyFreeCredits] = &entity.CreditConfig{
		Key:   entity.CreditConfigDailyFreeCredits,
		Value: json.RawMessage(`{"oops": true}`),
	}
	f.setTool("summary", false, 1.0, 0)
	f.setTool("questions", true, 1.0, 45)
	ctx := context.Background()

	snap := f.cache.Snapshot(ctx)
	assert.False(t, snap.IsToolEnabled("summary"))
	assert.Equal(t, 45, snap.CooldownSeconds("questions"))
	assert.Equal(t, 3, snap.CreditCost("summary"))
	assert.Equal(t, 0, snap.CreditCost("questions"))
	assert.Equal(t, 10, snap.DailyFreeLimit())
}

func TestUnreadablePricingRowFallsBackToDefaultPrices(t *testing.T) {
	f := newFixture(10)
	f.store.creditConfigs[entity.CreditConfigToolPricing] = &entity.CreditConfig{
		Key:   entity.CreditConfigToolPricing,
		Value: json.RawMessage(`"free"`),
	}
	f.setTool("summary", true, 1.0, 20)
	ctx := context.Background()

	snap := f.cache.Snapshot(ctx)
	assert.Equal(t, 1, snap.CreditCost("summary"))
	assert.Equal(t, 2, snap.CreditCost("questions"))
	assert.Equal(t, 20, snap.CooldownSeconds("summary"))
}
