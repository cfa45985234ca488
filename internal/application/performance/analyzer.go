package performance

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/alejandrodnm/forecastbot/internal/domain"
	"github.com/alejandrodnm/forecastbot/internal/ports"
)

// HourlySamplesPerYear is the annualization base for an hourly sampling
// cadence: 252 trading days × 24 hours.
const HourlySamplesPerYear = 252 * 24

// defaultRiskFreeRate is the assumed annual risk-free rate for Sharpe.
const defaultRiskFreeRate = 0.02

// Analyzer derives return/risk metrics from the portfolio value series.
type Analyzer struct {
	store          ports.PortfolioStore
	samplesPerYear float64
	riskFreeRate   float64
}

// New creates an Analyzer. samplesPerYear <= 0 assumes hourly sampling.
func New(store ports.PortfolioStore, samplesPerYear, riskFreeRate float64) *Analyzer {
	if samplesPerYear <= 0 {
		samplesPerYear = HourlySamplesPerYear
	}
	if riskFreeRate <= 0 {
		riskFreeRate = defaultRiskFreeRate
	}
	return &Analyzer{store: store, samplesPerYear: samplesPerYear, riskFreeRate: riskFreeRate}
}

// Metrics loads the persisted value series and computes its metrics.
func (a *Analyzer) Metrics(ctx context.Context) (domain.PerformanceMetrics, error) {
	samples, err := a.store.ValueHistory(ctx)
	if err != nil {
		return domain.PerformanceMetrics{}, fmt.Errorf("performance.Metrics: %w", err)
	}
	return Compute(samples, a.samplesPerYear, a.riskFreeRate), nil
}

// Compute derives all metrics from a value series. Fewer than 2 samples
// yields the neutral zero-valued result, never an error.
func Compute(samples []domain.ValueSample, samplesPerYear, annualRiskFree float64) domain.PerformanceMetrics {
	if len(samples) < 2 {
		return domain.PerformanceMetrics{}
	}

	sorted := make([]domain.ValueSample, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	first, last := sorted[0], sorted[len(sorted)-1]

	var m domain.PerformanceMetrics
	if first.Value != 0 {
		m.TotalReturn = last.Value/first.Value - 1
	}

	elapsedDays := last.Timestamp.Sub(first.Timestamp).Hours() / 24
	if elapsedDays > 0 {
		m.AnnualizedReturn = math.Pow(1+m.TotalReturn, 365.0/elapsedDays) - 1
	}

	returns := sampleReturns(sorted)
	if len(returns) >= 2 {
		sd := stat.StdDev(returns, nil)
		m.AnnualizedVolatility = sd * math.Sqrt(samplesPerYear)
		if sd > 0 {
			perSampleRiskFree := math.Pow(1+annualRiskFree, 1/samplesPerYear) - 1
			m.SharpeRatio = (stat.Mean(returns, nil) - perSampleRiskFree) / sd * math.Sqrt(samplesPerYear)
		}
	}

	m.MaxDrawdown = maxDrawdown(sorted)
	return m
}

// sampleReturns converts the value series into per-sample simple returns.
// A zero previous value cannot produce a return and is skipped.
func sampleReturns(samples []domain.ValueSample) []float64 {
	returns := make([]float64, 0, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		prev := samples[i-1].Value
		if prev == 0 {
			continue
		}
		returns = append(returns, samples[i].Value/prev-1)
	}
	return returns
}

// maxDrawdown is the worst decline from the running peak, always <= 0.
// A non-decreasing series yields exactly 0.
func maxDrawdown(samples []domain.ValueSample) float64 {
	peak := samples[0].Value
	worst := 0.0
	for _, s := range samples {
		if s.Value > peak {
			peak = s.Value
		}
		if peak > 0 {
			if dd := s.Value/peak - 1; dd < worst {
				worst = dd
			}
		}
	}
	return worst
}
