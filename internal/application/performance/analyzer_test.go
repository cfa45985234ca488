package performance_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/alejandrodnm/forecastbot/internal/application/performance"
	"github.com/alejandrodnm/forecastbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPortfolioStore struct {
	samples []domain.ValueSample
}

func (m *mockPortfolioStore) LoadPortfolio(_ context.Context, initialCash float64) (domain.Portfolio, error) {
	return domain.NewPortfolio(initialCash), nil
}

func (m *mockPortfolioStore) CommitOrder(_ context.Context, _ domain.Portfolio, _ domain.Transaction) error {
	return nil
}

func (m *mockPortfolioStore) SaveValueSample(_ context.Context, _ domain.ValueSample) error {
	return nil
}

func (m *mockPortfolioStore) ValueHistory(_ context.Context) ([]domain.ValueSample, error) {
	return m.samples, nil
}

func (m *mockPortfolioStore) Transactions(_ context.Context, _ time.Time) ([]domain.Transaction, error) {
	return nil, nil
}

func series(base time.Time, values ...float64) []domain.ValueSample {
	out := make([]domain.ValueSample, len(values))
	for i, v := range values {
		out[i] = domain.ValueSample{Timestamp: base.Add(time.Duration(i) * time.Hour), Value: v}
	}
	return out
}

func TestComputeTooFewSamples(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	m := performance.Compute(nil, performance.HourlySamplesPerYear, 0.02)
	assert.Equal(t, domain.PerformanceMetrics{}, m)

	m = performance.Compute(series(base, 10000), performance.HourlySamplesPerYear, 0.02)
	assert.Equal(t, domain.PerformanceMetrics{}, m)
}

func TestComputeTotalAndAnnualizedReturn(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	samples := []domain.ValueSample{
		{Timestamp: base, Value: 10000},
		{Timestamp: base.AddDate(0, 0, 365), Value: 11000},
	}

	m := performance.Compute(samples, performance.HourlySamplesPerYear, 0.02)
	assert.InDelta(t, 0.10, m.TotalReturn, 1e-9)
	// Exactly one year elapsed: annualized equals total.
	assert.InDelta(t, 0.10, m.AnnualizedReturn, 1e-9)
}

func TestComputeSortsOutOfOrderSamples(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	samples := []domain.ValueSample{
		{Timestamp: base.Add(2 * time.Hour), Value: 10500},
		{Timestamp: base, Value: 10000},
		{Timestamp: base.Add(time.Hour), Value: 10200},
	}

	m := performance.Compute(samples, performance.HourlySamplesPerYear, 0.02)
	assert.InDelta(t, 0.05, m.TotalReturn, 1e-9)
}

func TestMaxDrawdown(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// Peak 12000, trough 9000: drawdown −25%.
	m := performance.Compute(series(base, 10000, 12000, 9000, 11000),
		performance.HourlySamplesPerYear, 0.02)
	assert.InDelta(t, -0.25, m.MaxDrawdown, 1e-9)

	// A non-decreasing series never draws down.
	m = performance.Compute(series(base, 10000, 10000, 10500, 11000),
		performance.HourlySamplesPerYear, 0.02)
	assert.Zero(t, m.MaxDrawdown)
}

func TestComputeFlatSeriesHasZeroSharpe(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	m := performance.Compute(series(base, 10000, 10000, 10000, 10000),
		performance.HourlySamplesPerYear, 0.02)

	assert.Zero(t, m.TotalReturn)
	assert.Zero(t, m.AnnualizedVolatility)
	// Zero volatility: Sharpe is defined as 0, not infinity.
	assert.Zero(t, m.SharpeRatio)
	assert.Zero(t, m.MaxDrawdown)
}

func TestComputeVolatilityPositiveForNoisySeries(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	m := performance.Compute(series(base, 10000, 10200, 9900, 10100, 9950),
		performance.HourlySamplesPerYear, 0.02)

	assert.Greater(t, m.AnnualizedVolatility, 0.0)
	assert.False(t, math.IsNaN(m.SharpeRatio))
	assert.Less(t, m.MaxDrawdown, 0.0)
}

func TestAnalyzerMetricsFromStore(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := &mockPortfolioStore{samples: series(base, 10000, 10100, 10250)}

	a := performance.New(store, performance.HourlySamplesPerYear, 0.02)
	m, err := a.Metrics(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.025, m.TotalReturn, 1e-9)
}
