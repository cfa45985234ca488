package strategy_test

import (
	"testing"

	"github.com/alejandrodnm/forecastbot/internal/domain/strategy"
	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	cfg := strategy.DefaultConfig()

	tests := []struct {
		name         string
		changePct    float64
		wantKind     strategy.ActionKind
		wantFraction float64
	}{
		{"well above band buys", 0.05, strategy.ActionBuy, 0.10},
		{"just above band buys", 0.0201, strategy.ActionBuy, 0.10},
		{"exactly at upper band holds", 0.02, strategy.ActionHold, 0},
		{"inside band holds", 0.005, strategy.ActionHold, 0},
		{"zero holds", 0, strategy.ActionHold, 0},
		{"exactly at lower band holds", -0.02, strategy.ActionHold, 0},
		{"just below band sells", -0.0201, strategy.ActionSell, 0.25},
		{"well below band sells", -0.10, strategy.ActionSell, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strategy.Decide(tt.changePct, cfg)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.InDelta(t, tt.wantFraction, got.Fraction, 1e-12)
		})
	}
}

func TestDecideCustomBands(t *testing.T) {
	cfg := strategy.Config{
		BuyThresholdPct:  0.01,
		SellThresholdPct: 0.05,
		BuyCashFraction:  0.50,
		SellHoldFraction: 1.0,
	}

	assert.Equal(t, strategy.ActionBuy, strategy.Decide(0.015, cfg).Kind)
	assert.Equal(t, strategy.ActionHold, strategy.Decide(-0.03, cfg).Kind)
	assert.Equal(t, strategy.ActionSell, strategy.Decide(-0.06, cfg).Kind)
	assert.InDelta(t, 1.0, strategy.Decide(-0.06, cfg).Fraction, 1e-12)
}
