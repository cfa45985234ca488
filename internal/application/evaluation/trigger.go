package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/forecastbot/internal/domain"
	"github.com/alejandrodnm/forecastbot/internal/ports"
)

// Trigger decides when models need retraining. Two independent paths can
// fire: threshold breaches on freshly computed metrics, and the volume
// counter of rows ingested since the last retrain. Both retrain EVERY
// tracked model type — retraining is all-or-nothing per run.
type Trigger struct {
	engine       *Engine
	trainer      ports.Trainer
	counters     ports.Counters
	thresholds   domain.Thresholds
	models       []domain.ModelType
	horizons     []string
	rowThreshold int
}

// TriggerConfig parametrizes a Trigger.
type TriggerConfig struct {
	Thresholds   domain.Thresholds
	Models       []domain.ModelType
	Horizons     []string
	RowThreshold int
}

// NewTrigger creates a Trigger over the tracked (model, horizon) enumeration.
func NewTrigger(engine *Engine, trainer ports.Trainer, counters ports.Counters, cfg TriggerConfig) *Trigger {
	if len(cfg.Models) == 0 {
		cfg.Models = domain.TrackedModels
	}
	if len(cfg.Horizons) == 0 {
		cfg.Horizons = domain.TrackedHorizons
	}
	if cfg.RowThreshold <= 0 {
		cfg.RowThreshold = 24
	}
	return &Trigger{
		engine:       engine,
		trainer:      trainer,
		counters:     counters,
		thresholds:   cfg.Thresholds,
		models:       cfg.Models,
		horizons:     cfg.Horizons,
		rowThreshold: cfg.RowThreshold,
	}
}

// RunEvaluation computes and stores metrics for every tracked
// (model, horizon) pair of the symbol. If ANY metric of ANY pair breaches
// its threshold the whole run is flagged and all models are retrained.
// Returns whether retraining was triggered.
func (t *Trigger) RunEvaluation(ctx context.Context, symbol string) (bool, error) {
	retrainNeeded := false

	for _, model := range t.models {
		for _, horizon := range t.horizons {
			m, err := t.engine.Calculate(ctx, model, horizon, symbol)
			if err != nil {
				return false, fmt.Errorf("evaluation.RunEvaluation: %s/%s: %w", model, horizon, err)
			}
			if m == nil {
				continue // no resolved data yet for this pair
			}

			if err := t.engine.Store(ctx, model, horizon, symbol, *m); err != nil {
				return false, err
			}

			if m.Breached(t.thresholds) {
				slog.Warn("accuracy thresholds exceeded",
					"model", model, "horizon", horizon, "symbol", symbol,
					"mape", m.MAPE, "mae", m.MAE, "rmse", m.RMSE,
				)
				retrainNeeded = true
			}
		}
	}

	if retrainNeeded {
		slog.Info("metric thresholds exceeded, triggering model retraining")
		t.retrainAll(ctx)
	}
	return retrainNeeded, nil
}

// RecordIngestedRows bumps the persisted rows-since-retrain counter and
// fires the volume-based retrain when the threshold is reached. Returns
// whether retraining was triggered.
func (t *Trigger) RecordIngestedRows(ctx context.Context, n int) (bool, error) {
	count, err := t.counters.RowsSinceRetrain(ctx)
	if err != nil {
		return false, fmt.Errorf("evaluation.RecordIngestedRows: %w", err)
	}
	count += n

	if count < t.rowThreshold {
		if err := t.counters.SetRowsSinceRetrain(ctx, count); err != nil {
			return false, fmt.Errorf("evaluation.RecordIngestedRows: %w", err)
		}
		slog.Debug("rows since last retrain", "count", count, "threshold", t.rowThreshold)
		return false, nil
	}

	slog.Info("row threshold reached, triggering model retraining",
		"count", count, "threshold", t.rowThreshold)
	// Persist the count first so a failed retrain re-attempts next cycle.
	if err := t.counters.SetRowsSinceRetrain(ctx, count); err != nil {
		return false, fmt.Errorf("evaluation.RecordIngestedRows: %w", err)
	}
	t.retrainAll(ctx)
	return true, nil
}

// retrainAll retrains every tracked model type, blocking. Failures are
// logged and swallowed — the system keeps operating on the previous model
// and the counter stays put, so the next cycle re-attempts. Only a fully
// successful run resets the counter and stamps the retrain time.
func (t *Trigger) retrainAll(ctx context.Context) {
	for _, model := range t.models {
		if err := t.trainer.Retrain(ctx, model); err != nil {
			slog.Error("model retraining failed", "model", model, "err", err)
			return
		}
	}

	if err := t.counters.SetRowsSinceRetrain(ctx, 0); err != nil {
		slog.Error("failed to reset retrain counter", "err", err)
	}
	if err := t.counters.SetLastRetrainAt(ctx, time.Now().UTC()); err != nil {
		slog.Error("failed to stamp retrain time", "err", err)
	}
	slog.Info("all models retrained")
}
