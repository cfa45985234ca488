package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/forecastbot/internal/application/evaluation"
	"github.com/alejandrodnm/forecastbot/internal/application/portfolio"
	"github.com/alejandrodnm/forecastbot/internal/application/reconciler"
	"github.com/alejandrodnm/forecastbot/internal/domain"
	"github.com/alejandrodnm/forecastbot/internal/ports"
)

// PerformanceSource is the slice of the analyzer the controller consumes.
type PerformanceSource interface {
	Metrics(ctx context.Context) (domain.PerformanceMetrics, error)
}

// Controller orchestrates the closed loop: ingest market data, reconcile
// pending predictions, score models, maybe retrain, trade on the freshest
// prediction, and sample the portfolio value.
//
// All entry points share one mutex: jobs run strictly one at a time, which
// is the whole concurrency model — the persisted files have a single writer.
type Controller struct {
	symbol string

	prices     ports.PriceSource
	candles    ports.CandleStore
	recon      *reconciler.Reconciler
	engine     *evaluation.Engine
	trigger    *evaluation.Trigger
	ledger     *portfolio.Ledger
	analyzer   PerformanceSource
	forecaster ports.Forecaster
	registry   ports.ModelRegistry
	reporter   ports.Reporter

	mu sync.Mutex
}

// Deps bundles the controller's collaborators.
type Deps struct {
	Symbol     string
	Prices     ports.PriceSource
	Candles    ports.CandleStore
	Reconciler *reconciler.Reconciler
	Engine     *evaluation.Engine
	Trigger    *evaluation.Trigger
	Ledger     *portfolio.Ledger
	Analyzer   PerformanceSource
	Forecaster ports.Forecaster
	Registry   ports.ModelRegistry
	Reporter   ports.Reporter
}

// New wires a Controller.
func New(d Deps) *Controller {
	return &Controller{
		symbol:     d.Symbol,
		prices:     d.Prices,
		candles:    d.Candles,
		recon:      d.Reconciler,
		engine:     d.Engine,
		trigger:    d.Trigger,
		ledger:     d.Ledger,
		analyzer:   d.Analyzer,
		forecaster: d.Forecaster,
		registry:   d.Registry,
		reporter:   d.Reporter,
	}
}

// RunDataCycle is the hourly job: fetch the latest bar, cache it, resolve
// pending predictions, log fresh forecasts, run the live strategy, and bump
// the row counter that may fire a volume-based retrain.
func (c *Controller) RunDataCycle(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()

	candle, ok, err := c.prices.FetchLatest(ctx, c.symbol)
	if err != nil {
		return fmt.Errorf("controller.RunDataCycle: fetch: %w", err)
	}
	if !ok {
		slog.Warn("no market data available, skipping cycle", "symbol", c.symbol)
		return nil
	}

	if err := c.candles.SaveCandle(ctx, candle); err != nil {
		return fmt.Errorf("controller.RunDataCycle: cache candle: %w", err)
	}

	resolved, err := c.recon.Run(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("controller.RunDataCycle: reconcile: %w", err)
	}

	c.logForecasts(ctx, candle.Timestamp)

	action, err := c.ledger.DecideAndAct(ctx, candle.Close, c.symbol)
	if err != nil {
		return fmt.Errorf("controller.RunDataCycle: strategy: %w", err)
	}

	retrained, err := c.trigger.RecordIngestedRows(ctx, 1)
	if err != nil {
		return fmt.Errorf("controller.RunDataCycle: row counter: %w", err)
	}

	state, err := c.ledger.State(ctx)
	if err != nil {
		return fmt.Errorf("controller.RunDataCycle: %w", err)
	}

	if err := c.reporter.CycleSummary(ctx, ports.CycleSummary{
		Symbol:         c.symbol,
		Price:          candle.Close,
		Resolved:       resolved,
		Action:         string(action.Kind),
		PortfolioValue: state.Value(map[string]float64{c.symbol: candle.Close}),
		RetrainFired:   retrained,
	}); err != nil {
		slog.Warn("reporter error", "err", err)
	}

	slog.Info("data cycle complete",
		"symbol", c.symbol,
		"price", candle.Close,
		"resolved", resolved,
		"action", action.Kind,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// RunFullEvaluation is the daily job: score every tracked (model, horizon)
// pair and retrain on threshold breaches.
func (c *Controller) RunFullEvaluation(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	retrained, err := c.trigger.RunEvaluation(ctx, c.symbol)
	if err != nil {
		return fmt.Errorf("controller.RunFullEvaluation: %w", err)
	}
	slog.Info("full evaluation complete", "symbol", c.symbol, "retrained", retrained)
	return nil
}

// RunBackfill is the hourly reconciliation job, also exposed for manual runs.
func (c *Controller) RunBackfill(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	resolved, err := c.recon.Run(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("controller.RunBackfill: %w", err)
	}
	slog.Info("backfill complete", "resolved", resolved)
	return nil
}

// RunStrategy executes one manual live-strategy decision, bypassing the
// scheduler, using the freshest available price.
func (c *Controller) RunStrategy(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	candle, ok, err := c.prices.FetchLatest(ctx, c.symbol)
	if err != nil {
		return fmt.Errorf("controller.RunStrategy: fetch: %w", err)
	}
	if !ok {
		slog.Warn("no market data available, cannot run strategy", "symbol", c.symbol)
		return nil
	}

	action, err := c.ledger.DecideAndAct(ctx, candle.Close, c.symbol)
	if err != nil {
		return fmt.Errorf("controller.RunStrategy: %w", err)
	}
	slog.Info("manual strategy run complete", "action", action.Kind, "price", candle.Close)
	return nil
}

// Report assembles the full on-demand report: portfolio, performance,
// recent transactions and the accuracy grid. Pure reads, no side effects.
func (c *Controller) Report(ctx context.Context) (ports.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.ledger.State(ctx)
	if err != nil {
		return ports.Report{}, fmt.Errorf("controller.Report: %w", err)
	}

	prices := map[string]float64{}
	if candle, ok, err := c.prices.FetchLatest(ctx, c.symbol); err == nil && ok {
		prices[c.symbol] = candle.Close
	}

	perf, err := c.analyzer.Metrics(ctx)
	if err != nil {
		return ports.Report{}, fmt.Errorf("controller.Report: %w", err)
	}

	txs, err := c.ledger.Transactions(ctx, time.Now().UTC().AddDate(0, 0, -30))
	if err != nil {
		return ports.Report{}, fmt.Errorf("controller.Report: %w", err)
	}

	var cells []ports.AccuracyCell
	for _, model := range domain.TrackedModels {
		for _, horizon := range domain.TrackedHorizons {
			m, err := c.engine.Calculate(ctx, model, horizon, c.symbol)
			if err != nil {
				return ports.Report{}, fmt.Errorf("controller.Report: %w", err)
			}
			cells = append(cells, ports.AccuracyCell{Model: model, Horizon: horizon, Metrics: m})
		}
	}

	var versions []domain.ModelVersion
	if c.registry != nil {
		for _, model := range domain.TrackedModels {
			v, ok, err := c.registry.LatestVersion(ctx, model)
			if err != nil {
				return ports.Report{}, fmt.Errorf("controller.Report: %w", err)
			}
			if ok {
				versions = append(versions, v)
			}
		}
	}

	return ports.Report{
		Portfolio:    state,
		Prices:       prices,
		Transactions: txs,
		Performance:  perf,
		Accuracy:     cells,
		Versions:     versions,
	}, nil
}

// logForecasts asks the external inference for fresh forecasts of every
// tracked (model, horizon) pair and appends them to the prediction ledger.
// Inference failures are logged and swallowed: the loop keeps running on
// whatever predictions already exist.
func (c *Controller) logForecasts(ctx context.Context, from time.Time) {
	if c.forecaster == nil {
		return
	}
	for _, model := range domain.TrackedModels {
		for _, horizon := range domain.TrackedHorizons {
			points, err := c.forecaster.Forecast(ctx, model, horizon, c.symbol)
			if err != nil {
				slog.Error("forecast failed", "model", model, "horizon", horizon, "err", err)
				continue
			}
			for _, pt := range points {
				target := time.Unix(pt.Timestamp, 0).UTC()
				if !target.After(from) {
					continue // only forward-looking points belong in the ledger
				}
				if err := c.ledger.LogPrediction(ctx, domain.Prediction{
					Timestamp: target,
					Symbol:    c.symbol,
					Horizon:   horizon,
					Model:     model,
					Predicted: pt.Value,
				}); err != nil {
					slog.Error("failed to log prediction", "model", model, "err", err)
				}
			}
		}
	}
}
