package portfolio_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/forecastbot/internal/application/portfolio"
	"github.com/alejandrodnm/forecastbot/internal/domain"
	"github.com/alejandrodnm/forecastbot/internal/domain/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCandleStore struct {
	closes map[int64]float64
}

func (m *mockCandleStore) SaveCandle(_ context.Context, _ domain.Candle) error { return nil }

func (m *mockCandleStore) CloseAt(_ context.Context, _ string, ts time.Time) (float64, bool, error) {
	price, ok := m.closes[ts.Unix()]
	return price, ok, nil
}

func backtestConfig() portfolio.Config {
	return portfolio.Config{
		InitialCash: 10000,
		MinNotional: 10,
		Strategy:    strategy.DefaultConfig(),
		Model:       domain.ModelARIMA,
		Horizon:     "24h",
	}
}

func resolvedAt(target time.Time, predicted, actual float64) domain.Prediction {
	e := predicted - actual
	return domain.Prediction{
		Timestamp: target,
		Symbol:    "BTC-USD",
		Horizon:   "24h",
		Model:     domain.ModelARIMA,
		Predicted: predicted,
		Actual:    &actual,
		Error:     &e,
	}
}

func TestBacktestReplaysStrategy(t *testing.T) {
	// Two decision points a day apart. Decision time is target − 24h.
	target1 := time.Now().UTC().Truncate(time.Hour).Add(-48 * time.Hour)
	target2 := target1.Add(24 * time.Hour)
	decision1 := target1.Add(-24 * time.Hour)
	decision2 := target2.Add(-24 * time.Hour)

	preds := &mockPredStore{resolved: []domain.Prediction{
		// +3% predicted at 50000: buy.
		resolvedAt(target1, 51500, 50900),
		// −4% predicted at 52000: sell.
		resolvedAt(target2, 49920, 51000),
	}}
	candles := &mockCandleStore{closes: map[int64]float64{
		decision1.Unix(): 50000,
		decision2.Unix(): 52000,
	}}

	res, err := portfolio.Backtest(context.Background(), preds, candles, backtestConfig(), "BTC-USD", 30)
	require.NoError(t, err)

	assert.Equal(t, "BTC-USD", res.Symbol)
	assert.Equal(t, 2, res.Trades)
	assert.InDelta(t, 10000, res.InitialValue, 1e-9)
	require.Len(t, res.Samples, 2)

	// After the buy: cash 9000, 0.02 BTC worth 1000 at 50000.
	assert.InDelta(t, 10000, res.Samples[0].Value, 1e-9)
	// At 52000 the 0.02 position is worth 1040; selling 25% realizes 260.
	assert.InDelta(t, 9000+0.02*52000, res.Samples[1].Value, 1e-9)
	assert.InDelta(t, res.Samples[1].Value, res.FinalValue, 1e-9)
}

func TestBacktestFullLiquidationSell(t *testing.T) {
	target1 := time.Now().UTC().Truncate(time.Hour).Add(-48 * time.Hour)
	target2 := target1.Add(24 * time.Hour)
	decision1 := target1.Add(-24 * time.Hour)
	decision2 := target2.Add(-24 * time.Hour)

	preds := &mockPredStore{resolved: []domain.Prediction{
		resolvedAt(target1, 51500, 50900),
		resolvedAt(target2, 49920, 51000),
	}}
	candles := &mockCandleStore{closes: map[int64]float64{
		decision1.Unix(): 50000,
		decision2.Unix(): 52000,
	}}

	// A sell liquidates the whole position: the symbol must drop out of
	// the holdings and the final value be pure cash.
	cfg := backtestConfig()
	cfg.Strategy.SellHoldFraction = 1.0

	res, err := portfolio.Backtest(context.Background(), preds, candles, cfg, "BTC-USD", 30)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Trades)
	require.Len(t, res.Samples, 2)
	// Buy 1000 at 50000 (0.02 BTC), then sell all of it at 52000.
	assert.InDelta(t, 9000+0.02*52000, res.Samples[1].Value, 1e-9)
	assert.InDelta(t, 10040, res.FinalValue, 1e-9)
}

func TestBacktestSkipsRowsWithoutPrice(t *testing.T) {
	target := time.Now().UTC().Truncate(time.Hour).Add(-48 * time.Hour)
	preds := &mockPredStore{resolved: []domain.Prediction{
		resolvedAt(target, 51500, 50900),
	}}
	candles := &mockCandleStore{} // empty cache

	res, err := portfolio.Backtest(context.Background(), preds, candles, backtestConfig(), "BTC-USD", 30)
	require.NoError(t, err)
	assert.Zero(t, res.Trades)
	assert.Empty(t, res.Samples)
}

func TestBacktestRejectsBadHorizon(t *testing.T) {
	cfg := backtestConfig()
	cfg.Horizon = "one-day"

	_, err := portfolio.Backtest(context.Background(), &mockPredStore{}, &mockCandleStore{}, cfg, "BTC-USD", 30)
	assert.Error(t, err)
}

func TestBacktestNoResolvedRows(t *testing.T) {
	res, err := portfolio.Backtest(context.Background(), &mockPredStore{}, &mockCandleStore{}, backtestConfig(), "BTC-USD", 30)
	require.NoError(t, err)
	assert.Zero(t, res.Trades)
	assert.InDelta(t, 10000, res.InitialValue, 1e-9)
	// With no usable rows the final value falls back to a zero price.
	assert.InDelta(t, 10000, res.FinalValue, 1e-9)
}
