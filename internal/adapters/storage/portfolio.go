package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/forecastbot/internal/domain"
)

// LoadPortfolio carga el estado persistido del portfolio. Sin fila previa
// (o con JSON corrupto) arranca limpio con el cash inicial: cold-start.
func (s *SQLiteStorage) LoadPortfolio(ctx context.Context, initialCash float64) (domain.Portfolio, error) {
	var cash float64
	var rawHoldings string
	err := s.db.QueryRowContext(ctx,
		`SELECT cash, holdings FROM portfolio WHERE id = 1`,
	).Scan(&cash, &rawHoldings)
	if err == sql.ErrNoRows {
		return domain.NewPortfolio(initialCash), nil
	}
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("storage.LoadPortfolio: %w", err)
	}

	holdings := make(map[string]float64)
	if err := json.Unmarshal([]byte(rawHoldings), &holdings); err != nil {
		slog.Error("portfolio holdings JSON corrupt, starting fresh", "err", err)
		return domain.NewPortfolio(initialCash), nil
	}
	return domain.Portfolio{Cash: cash, Holdings: holdings}, nil
}

// CommitOrder persiste el nuevo estado del portfolio y su transacción en un
// único commit: tras un crash queda o el par viejo o el par nuevo, nunca
// estado sin transacción ni transacción sin estado.
func (s *SQLiteStorage) CommitOrder(ctx context.Context, state domain.Portfolio, txn domain.Transaction) error {
	rawHoldings, err := json.Marshal(state.Holdings)
	if err != nil {
		return fmt.Errorf("storage.CommitOrder: marshal holdings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.CommitOrder: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO portfolio (id, cash, holdings) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET cash = excluded.cash, holdings = excluded.holdings
	`, state.Cash, string(rawHoldings)); err != nil {
		return fmt.Errorf("storage.CommitOrder: save state: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, ts, symbol, type, quantity, price, total)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, txn.ID, txn.Timestamp.UTC().Format(time.RFC3339), txn.Symbol, string(txn.Type),
		txn.Quantity, txn.Price, txn.Total); err != nil {
		return fmt.Errorf("storage.CommitOrder: log transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.CommitOrder: commit: %w", err)
	}
	return nil
}

// SaveValueSample añade una muestra a la serie de valor del portfolio.
func (s *SQLiteStorage) SaveValueSample(ctx context.Context, sample domain.ValueSample) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO portfolio_values (ts, value) VALUES (?, ?)`,
		sample.Timestamp.UTC().Format(time.RFC3339), sample.Value)
	if err != nil {
		return fmt.Errorf("storage.SaveValueSample: %w", err)
	}
	return nil
}

// ValueHistory devuelve la serie de valor completa en orden temporal.
func (s *SQLiteStorage) ValueHistory(ctx context.Context) ([]domain.ValueSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, value FROM portfolio_values ORDER BY ts`)
	if err != nil {
		return nil, fmt.Errorf("storage.ValueHistory: query: %w", err)
	}
	defer rows.Close()

	var samples []domain.ValueSample
	for rows.Next() {
		var raw string
		var v float64
		if err := rows.Scan(&raw, &v); err != nil {
			return nil, fmt.Errorf("storage.ValueHistory: scan: %w", err)
		}
		ts, ok := parseTimestamp(raw)
		if !ok {
			continue
		}
		samples = append(samples, domain.ValueSample{Timestamp: ts, Value: v})
	}
	return samples, rows.Err()
}

// Transactions devuelve las transacciones desde from, más recientes primero.
func (s *SQLiteStorage) Transactions(ctx context.Context, from time.Time) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, symbol, type, quantity, price, total
		FROM transactions
		WHERE ts >= ?
		ORDER BY ts DESC
	`, from.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("storage.Transactions: query: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var raw string
		if err := rows.Scan(&t.ID, &raw, &t.Symbol, (*string)(&t.Type), &t.Quantity, &t.Price, &t.Total); err != nil {
			return nil, fmt.Errorf("storage.Transactions: scan: %w", err)
		}
		ts, ok := parseTimestamp(raw)
		if !ok {
			slog.Warn("transaction with unparseable timestamp, skipping", "id", t.ID, "raw", raw)
			continue
		}
		t.Timestamp = ts
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
