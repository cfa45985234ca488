package domain_test

import (
	"math"
	"testing"
	"time"

	"github.com/alejandrodnm/forecastbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictionResolution(t *testing.T) {
	p := domain.Prediction{
		ID:        7,
		Timestamp: time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC),
		Symbol:    "BTC-USD",
		Horizon:   "24h",
		Model:     domain.ModelARIMA,
		Predicted: 51000,
	}
	assert.False(t, p.Resolved())

	res := domain.NewResolution(p, 50000)
	assert.Equal(t, int64(7), res.ID)
	assert.InDelta(t, 50000, res.Actual, 1e-9)
	assert.InDelta(t, 1000, res.Error, 1e-9)

	// Signed error: overprediction positive, underprediction negative.
	res = domain.NewResolution(p, 52000)
	assert.InDelta(t, -1000, res.Error, 1e-9)
}

func TestPredictedChangePct(t *testing.T) {
	p := domain.Prediction{Predicted: 51000}
	assert.InDelta(t, 0.02, p.PredictedChangePct(50000), 1e-9)

	p.Predicted = 49000
	assert.InDelta(t, -0.02, p.PredictedChangePct(50000), 1e-9)

	// Guard against division by zero.
	assert.Zero(t, p.PredictedChangePct(0))
}

func TestMetricSetBreached(t *testing.T) {
	thr := domain.Thresholds{MAPE: 10, MAE: 500, RMSE: 600}

	tests := []struct {
		name string
		m    domain.MetricSet
		want bool
	}{
		{"all below", domain.MetricSet{MAE: 100, RMSE: 150, MAPE: 2}, false},
		{"mape breach alone", domain.MetricSet{MAE: 100, RMSE: 150, MAPE: 10.5}, true},
		{"mae breach alone", domain.MetricSet{MAE: 501, RMSE: 150, MAPE: 2}, true},
		{"rmse breach alone", domain.MetricSet{MAE: 100, RMSE: 601, MAPE: 2}, true},
		{"exactly at threshold is not a breach", domain.MetricSet{MAE: 500, RMSE: 600, MAPE: 10}, false},
		{"undefined mape never breaches", domain.MetricSet{MAE: 100, RMSE: 150, MAPE: math.NaN()}, false},
		{"undefined mape with mae breach", domain.MetricSet{MAE: 501, RMSE: 150, MAPE: math.NaN()}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.m.Breached(thr))
		})
	}
}

func TestPortfolioValue(t *testing.T) {
	p := domain.NewPortfolio(10000)
	assert.InDelta(t, 10000, p.Value(nil), 1e-9)

	p.Cash = 500
	p.Holdings["BTC-USD"] = 0.19
	value := p.Value(map[string]float64{"BTC-USD": 50000})
	assert.InDelta(t, 500+0.19*50000, value, 1e-9)

	// Symbols without a price contribute nothing.
	p.Holdings["ETH-USD"] = 3
	assert.InDelta(t, value, p.Value(map[string]float64{"BTC-USD": 50000}), 1e-9)
}

func TestPortfolioClone(t *testing.T) {
	p := domain.NewPortfolio(1000)
	p.Holdings["BTC-USD"] = 0.5

	clone := p.Clone()
	clone.Cash = 0
	clone.Holdings["BTC-USD"] = 99

	require.InDelta(t, 1000, p.Cash, 1e-9)
	assert.InDelta(t, 0.5, p.Holdings["BTC-USD"], 1e-9)
}
