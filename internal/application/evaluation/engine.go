package evaluation

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/alejandrodnm/forecastbot/internal/domain"
	"github.com/alejandrodnm/forecastbot/internal/ports"
)

// Engine computes and stores forecast accuracy metrics.
type Engine struct {
	preds        ports.PredictionStore
	metrics      ports.MetricStore
	lookbackDays int
}

// NewEngine creates an Engine with the given evaluation window.
func NewEngine(preds ports.PredictionStore, metrics ports.MetricStore, lookbackDays int) *Engine {
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	return &Engine{preds: preds, metrics: metrics, lookbackDays: lookbackDays}
}

// Calculate computes MAE/RMSE/MAPE for the triple over the trailing window.
// Returns nil when the window holds no resolved predictions: callers must
// distinguish "no data yet" from "zero error", so absence is not a zero set.
func (e *Engine) Calculate(ctx context.Context, model domain.ModelType, horizon, symbol string) (*domain.MetricSet, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -e.lookbackDays)

	rows, err := e.preds.ResolvedInWindow(ctx, model, horizon, symbol, from, now)
	if err != nil {
		return nil, fmt.Errorf("evaluation.Calculate: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	m := computeMetricSet(rows)
	return &m, nil
}

// computeMetricSet derives the three accuracy metrics from resolved rows.
// MAPE only uses rows whose actual is non-zero; with no usable rows it is
// NaN (undefined), never silently 0.
func computeMetricSet(rows []domain.Prediction) domain.MetricSet {
	absErrs := make([]float64, 0, len(rows))
	sqErrs := make([]float64, 0, len(rows))
	pctErrs := make([]float64, 0, len(rows))

	for _, p := range rows {
		diff := p.Predicted - *p.Actual
		absErrs = append(absErrs, math.Abs(diff))
		sqErrs = append(sqErrs, diff*diff)
		if *p.Actual != 0 {
			pctErrs = append(pctErrs, math.Abs(diff)/math.Abs(*p.Actual))
		}
	}

	mape := math.NaN()
	if len(pctErrs) > 0 {
		mape = stat.Mean(pctErrs, nil) * 100
	}

	return domain.MetricSet{
		MAE:  stat.Mean(absErrs, nil),
		RMSE: math.Sqrt(stat.Mean(sqErrs, nil)),
		MAPE: mape,
	}
}

// Store appends one metrics row, timestamped now.
func (e *Engine) Store(ctx context.Context, model domain.ModelType, horizon, symbol string, m domain.MetricSet) error {
	rec := domain.MetricRecord{
		ComputedAt: time.Now().UTC(),
		Model:      model,
		Horizon:    horizon,
		Symbol:     symbol,
		Metrics:    m,
	}
	if err := e.metrics.StoreMetrics(ctx, rec); err != nil {
		return fmt.Errorf("evaluation.Store: %w", err)
	}
	return nil
}

// History returns the time series of one metric over the last days days.
func (e *Engine) History(ctx context.Context, model domain.ModelType, horizon, symbol, metricName string, days int) ([]domain.MetricPoint, error) {
	points, err := e.metrics.MetricHistory(ctx, model, horizon, symbol, metricName, days)
	if err != nil {
		return nil, fmt.Errorf("evaluation.History: %w", err)
	}
	return points, nil
}
