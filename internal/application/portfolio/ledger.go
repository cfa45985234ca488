package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/forecastbot/internal/domain"
	"github.com/alejandrodnm/forecastbot/internal/domain/strategy"
	"github.com/alejandrodnm/forecastbot/internal/ports"
)

// Config parametrizes the ledger and its live strategy.
type Config struct {
	InitialCash float64
	MinNotional float64 // buy orders below this value are skipped
	Strategy    strategy.Config
	// Model/Horizon pin the prediction source for the live strategy.
	// Which model drives trading is an explicit configuration decision.
	Model   domain.ModelType
	Horizon string
}

// Ledger owns the simulated portfolio: the only component that mutates its
// state. Every executed order commits state + transaction atomically through
// the store.
type Ledger struct {
	store ports.PortfolioStore
	preds ports.PredictionStore
	cfg   Config
}

// NewLedger creates the portfolio ledger.
func NewLedger(store ports.PortfolioStore, preds ports.PredictionStore, cfg Config) *Ledger {
	if cfg.InitialCash <= 0 {
		cfg.InitialCash = 10000
	}
	if cfg.MinNotional <= 0 {
		cfg.MinNotional = 10
	}
	if cfg.Model == "" {
		cfg.Model = domain.ModelARIMA
	}
	if cfg.Horizon == "" {
		cfg.Horizon = "24h"
	}
	return &Ledger{store: store, preds: preds, cfg: cfg}
}

// Buy spends amountCash of cash on symbol at price. Insufficient cash is a
// rejected order (false, nil), not an error, and leaves state untouched.
func (l *Ledger) Buy(ctx context.Context, symbol string, amountCash, price float64) (bool, error) {
	state, err := l.store.LoadPortfolio(ctx, l.cfg.InitialCash)
	if err != nil {
		return false, fmt.Errorf("portfolio.Buy: %w", err)
	}

	if state.Cash < amountCash {
		slog.Info("buy rejected: insufficient cash",
			"symbol", symbol, "amount", amountCash, "cash", state.Cash)
		return false, nil
	}

	quantity := amountCash / price
	next := state.Clone()
	next.Cash -= amountCash
	next.Holdings[symbol] += quantity

	txn := domain.Transaction{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Symbol:    symbol,
		Type:      domain.TransactionBuy,
		Quantity:  quantity,
		Price:     price,
		Total:     amountCash,
	}
	if err := l.store.CommitOrder(ctx, next, txn); err != nil {
		return false, fmt.Errorf("portfolio.Buy: %w", err)
	}

	slog.Info("BUY executed", "symbol", symbol, "quantity", quantity, "total", amountCash)
	return true, nil
}

// dustQuantity is the residual below which a holding counts as closed.
// Subtracting a rounded sell quantity from a float position leaves dust
// on the order of 1e-18 that would otherwise keep the symbol alive.
const dustQuantity = 1e-9

// Sell liquidates quantity of symbol at price. Insufficient holdings is a
// rejected order, not an error. Selling a position down to (numerically)
// zero removes the symbol from the holdings map.
func (l *Ledger) Sell(ctx context.Context, symbol string, quantity, price float64) (bool, error) {
	state, err := l.store.LoadPortfolio(ctx, l.cfg.InitialCash)
	if err != nil {
		return false, fmt.Errorf("portfolio.Sell: %w", err)
	}

	if state.Quantity(symbol) < quantity {
		slog.Info("sell rejected: insufficient holdings",
			"symbol", symbol, "quantity", quantity, "held", state.Quantity(symbol))
		return false, nil
	}

	total := quantity * price
	next := state.Clone()
	next.Cash += total
	next.Holdings[symbol] -= quantity
	if next.Holdings[symbol] < dustQuantity {
		delete(next.Holdings, symbol)
	}

	txn := domain.Transaction{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Symbol:    symbol,
		Type:      domain.TransactionSell,
		Quantity:  quantity,
		Price:     price,
		Total:     total,
	}
	if err := l.store.CommitOrder(ctx, next, txn); err != nil {
		return false, fmt.Errorf("portfolio.Sell: %w", err)
	}

	slog.Info("SELL executed", "symbol", symbol, "quantity", quantity, "total", total)
	return true, nil
}

// DecideAndAct runs the live strategy against the freshest prediction of
// the configured (model, horizon) and the live price, then always appends
// a portfolio value sample — hold included. A missing prediction means
// hold-and-log, never an error.
func (l *Ledger) DecideAndAct(ctx context.Context, currentPrice float64, symbol string) (strategy.Action, error) {
	action := strategy.Action{Kind: strategy.ActionHold}

	pred, found, err := l.preds.Latest(ctx, l.cfg.Model, l.cfg.Horizon, symbol)
	if err != nil {
		return action, fmt.Errorf("portfolio.DecideAndAct: %w", err)
	}

	if !found {
		slog.Info("no prediction available, holding", "symbol", symbol,
			"model", l.cfg.Model, "horizon", l.cfg.Horizon)
	} else {
		changePct := pred.PredictedChangePct(currentPrice)
		action = strategy.Decide(changePct, l.cfg.Strategy)
		slog.Info("strategy decision",
			"symbol", symbol,
			"predicted", pred.Predicted,
			"current", currentPrice,
			"change_pct", fmt.Sprintf("%.2f%%", changePct*100),
			"action", action.Kind,
		)

		if err := l.execute(ctx, action, symbol, currentPrice); err != nil {
			return action, fmt.Errorf("portfolio.DecideAndAct: %w", err)
		}
	}

	if err := l.RecordValue(ctx, map[string]float64{symbol: currentPrice}); err != nil {
		return action, fmt.Errorf("portfolio.DecideAndAct: %w", err)
	}
	return action, nil
}

// execute applies the decided action to the portfolio.
func (l *Ledger) execute(ctx context.Context, action strategy.Action, symbol string, price float64) error {
	switch action.Kind {
	case strategy.ActionBuy:
		state, err := l.store.LoadPortfolio(ctx, l.cfg.InitialCash)
		if err != nil {
			return err
		}
		amount := state.Cash * action.Fraction
		if amount < l.cfg.MinNotional {
			slog.Info("buy skipped: below minimum notional",
				"amount", amount, "min_notional", l.cfg.MinNotional)
			return nil
		}
		_, err = l.Buy(ctx, symbol, amount, price)
		return err

	case strategy.ActionSell:
		state, err := l.store.LoadPortfolio(ctx, l.cfg.InitialCash)
		if err != nil {
			return err
		}
		held := state.Quantity(symbol)
		if held == 0 {
			slog.Info("sell skipped: no position", "symbol", symbol)
			return nil
		}
		_, err = l.Sell(ctx, symbol, held*action.Fraction, price)
		return err

	default:
		return nil
	}
}

// RecordValue appends one sample of the current portfolio value.
func (l *Ledger) RecordValue(ctx context.Context, prices map[string]float64) error {
	state, err := l.store.LoadPortfolio(ctx, l.cfg.InitialCash)
	if err != nil {
		return err
	}
	return l.store.SaveValueSample(ctx, domain.ValueSample{
		Timestamp: time.Now().UTC(),
		Value:     state.Value(prices),
	})
}

// State returns the current persisted portfolio.
func (l *Ledger) State(ctx context.Context) (domain.Portfolio, error) {
	return l.store.LoadPortfolio(ctx, l.cfg.InitialCash)
}

// Transactions returns executed orders from the given instant onwards.
func (l *Ledger) Transactions(ctx context.Context, from time.Time) ([]domain.Transaction, error) {
	return l.store.Transactions(ctx, from)
}

// LogPrediction appends a new pending forecast to the prediction ledger.
func (l *Ledger) LogPrediction(ctx context.Context, p domain.Prediction) error {
	return l.preds.LogPrediction(ctx, p)
}
