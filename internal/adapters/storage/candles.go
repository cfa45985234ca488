package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/forecastbot/internal/domain"
)

// SaveCandle guarda (upsert) una barra en la cache local. Re-ingerir la
// misma hora sobreescribe: la última versión de la barra gana.
func (s *SQLiteStorage) SaveCandle(ctx context.Context, c domain.Candle) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO candles (symbol, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, ts) DO UPDATE SET
			open   = excluded.open,
			high   = excluded.high,
			low    = excluded.low,
			close  = excluded.close,
			volume = excluded.volume
	`, c.Symbol, c.Timestamp.UTC().Format(time.RFC3339), c.Open, c.High, c.Low, c.Close, c.Volume)
	if err != nil {
		return fmt.Errorf("storage.SaveCandle: %w", err)
	}
	return nil
}

// CloseAt devuelve el cierre del símbolo en el instante exacto (hora en punto).
func (s *SQLiteStorage) CloseAt(ctx context.Context, symbol string, ts time.Time) (float64, bool, error) {
	var close float64
	err := s.db.QueryRowContext(ctx,
		`SELECT close FROM candles WHERE symbol = ? AND ts = ?`,
		symbol, ts.UTC().Format(time.RFC3339),
	).Scan(&close)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("storage.CloseAt: %w", err)
	}
	return close, true, nil
}
