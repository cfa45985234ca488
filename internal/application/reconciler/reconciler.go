package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/forecastbot/internal/domain"
	"github.com/alejandrodnm/forecastbot/internal/ports"
)

// remotePadding widens the remote batch window around the pending gap so a
// single range call covers boundary bars.
const remotePadding = 24 * time.Hour

// Reconciler backfills realized prices into pending predictions. Local
// candle cache first, remote source only for whatever the cache could not
// resolve, batched per symbol to minimize external calls.
type Reconciler struct {
	preds  ports.PredictionStore
	local  ports.CandleStore
	remote ports.PriceSource
}

// New creates a Reconciler.
func New(preds ports.PredictionStore, local ports.CandleStore, remote ports.PriceSource) *Reconciler {
	return &Reconciler{preds: preds, local: local, remote: remote}
}

// Run resolves every pending prediction whose target timestamp is before
// now. Unresolvable predictions stay pending and get retried on the next
// pass — that is the design, not a failure. Returns how many were resolved.
//
// Running twice with no new realized prices is a no-op.
func (r *Reconciler) Run(ctx context.Context, now time.Time) (int, error) {
	pending, err := r.preds.Unresolved(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("reconciler.Run: load pending: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var resolutions []domain.Resolution
	var remaining []domain.Prediction

	// First chance: the local candle cache, no external call.
	for _, p := range pending {
		price, ok, err := r.local.CloseAt(ctx, p.Symbol, p.Timestamp)
		if err != nil {
			return 0, fmt.Errorf("reconciler.Run: local lookup: %w", err)
		}
		if ok {
			resolutions = append(resolutions, domain.NewResolution(p, price))
			continue
		}
		remaining = append(remaining, p)
	}

	// Remote fallback, one batched range call per symbol spanning the gap.
	resolutions = append(resolutions, r.resolveRemote(ctx, remaining)...)

	if err := r.preds.ResolveActuals(ctx, resolutions); err != nil {
		return 0, fmt.Errorf("reconciler.Run: persist: %w", err)
	}

	if len(resolutions) > 0 || len(remaining) > 0 {
		slog.Info("reconciliation pass complete",
			"pending", len(pending),
			"resolved", len(resolutions),
			"still_pending", len(pending)-len(resolutions),
		)
	}
	return len(resolutions), nil
}

// resolveRemote fetches realized prices for the still-unresolved gap. A
// remote failure leaves those predictions pending; it never aborts the pass.
func (r *Reconciler) resolveRemote(ctx context.Context, pending []domain.Prediction) []domain.Resolution {
	bySymbol := make(map[string][]domain.Prediction)
	for _, p := range pending {
		bySymbol[p.Symbol] = append(bySymbol[p.Symbol], p)
	}

	var resolutions []domain.Resolution
	for symbol, preds := range bySymbol {
		min, max := timestampSpan(preds)

		candles, err := r.remote.FetchRange(ctx, symbol, min.Add(-remotePadding), max.Add(remotePadding))
		if err != nil {
			slog.Warn("remote realized-price fetch failed, leaving pending",
				"symbol", symbol, "count", len(preds), "err", err)
			continue
		}

		closes := make(map[int64]float64, len(candles))
		for _, c := range candles {
			closes[c.Timestamp.Unix()] = c.Close
		}

		for _, p := range preds {
			price, ok := closes[p.Timestamp.Unix()]
			if !ok {
				continue // retried on the next pass
			}
			resolutions = append(resolutions, domain.NewResolution(p, price))
		}
	}
	return resolutions
}

// timestampSpan returns the min/max target timestamps of a non-empty batch.
func timestampSpan(preds []domain.Prediction) (time.Time, time.Time) {
	min, max := preds[0].Timestamp, preds[0].Timestamp
	for _, p := range preds[1:] {
		if p.Timestamp.Before(min) {
			min = p.Timestamp
		}
		if p.Timestamp.After(max) {
			max = p.Timestamp
		}
	}
	return min, max
}
