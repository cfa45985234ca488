package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/forecastbot/internal/domain"
	"github.com/alejandrodnm/forecastbot/internal/domain/strategy"
	"github.com/alejandrodnm/forecastbot/internal/ports"
)

// BacktestResult summarizes a strategy replay over historical predictions.
// Samples feed the performance analyzer for the full risk/return report.
type BacktestResult struct {
	Symbol       string
	Trades       int
	InitialValue float64
	FinalValue   float64
	Samples      []domain.ValueSample
}

// Backtest replays the resolved predictions of the configured
// (model, horizon) through the exact same Decide function the live path
// uses, on a throwaway in-memory portfolio. The price at decision time is
// the candle close one horizon before the prediction's target instant.
func Backtest(ctx context.Context, preds ports.PredictionStore, candles ports.CandleStore, cfg Config, symbol string, lookbackDays int) (BacktestResult, error) {
	if cfg.InitialCash <= 0 {
		cfg.InitialCash = 10000
	}
	if cfg.MinNotional <= 0 {
		cfg.MinNotional = 10
	}

	horizon, err := time.ParseDuration(cfg.Horizon)
	if err != nil {
		return BacktestResult{}, fmt.Errorf("portfolio.Backtest: bad horizon %q: %w", cfg.Horizon, err)
	}

	now := time.Now().UTC()
	rows, err := preds.ResolvedInWindow(ctx, cfg.Model, cfg.Horizon, symbol,
		now.AddDate(0, 0, -lookbackDays), now)
	if err != nil {
		return BacktestResult{}, fmt.Errorf("portfolio.Backtest: %w", err)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Timestamp.Before(rows[j].Timestamp) })

	state := domain.NewPortfolio(cfg.InitialCash)
	res := BacktestResult{Symbol: symbol, InitialValue: cfg.InitialCash}
	lastPrice := 0.0

	for _, p := range rows {
		decisionAt := p.Timestamp.Add(-horizon)
		price, ok, err := candles.CloseAt(ctx, symbol, decisionAt)
		if err != nil {
			return BacktestResult{}, fmt.Errorf("portfolio.Backtest: price lookup: %w", err)
		}
		if !ok || price == 0 {
			continue // no price at decision time, skip the row
		}
		lastPrice = price

		action := strategy.Decide(p.PredictedChangePct(price), cfg.Strategy)
		if applyAction(&state, action, symbol, price, cfg.MinNotional) {
			res.Trades++
		}

		res.Samples = append(res.Samples, domain.ValueSample{
			Timestamp: decisionAt,
			Value:     state.Value(map[string]float64{symbol: price}),
		})
	}

	res.FinalValue = state.Value(map[string]float64{symbol: lastPrice})

	slog.Info("backtest complete",
		"symbol", symbol,
		"rows", len(rows),
		"trades", res.Trades,
		"final_value", fmt.Sprintf("$%.2f", res.FinalValue),
	)
	return res, nil
}

// applyAction mutates the in-memory portfolio with the same arithmetic the
// live ledger commits; returns true when a trade was executed.
func applyAction(state *domain.Portfolio, action strategy.Action, symbol string, price, minNotional float64) bool {
	switch action.Kind {
	case strategy.ActionBuy:
		amount := state.Cash * action.Fraction
		if amount < minNotional || state.Cash < amount {
			return false
		}
		state.Cash -= amount
		state.Holdings[symbol] += amount / price
		return true

	case strategy.ActionSell:
		held := state.Holdings[symbol]
		if held == 0 {
			return false
		}
		quantity := held * action.Fraction
		state.Cash += quantity * price
		state.Holdings[symbol] -= quantity
		if state.Holdings[symbol] < dustQuantity {
			delete(state.Holdings, symbol)
		}
		return true

	default:
		return false
	}
}
