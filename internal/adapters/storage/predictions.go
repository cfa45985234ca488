package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/forecastbot/internal/domain"
)

// LogPrediction añade una predicción al ledger. Si ya existe una fila
// PENDIENTE para el mismo (ts, symbol, model, horizon), se sobreescribe el
// valor predicho en lugar de acumular duplicados; una fila ya resuelta no
// se toca nunca.
func (s *SQLiteStorage) LogPrediction(ctx context.Context, p domain.Prediction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO predictions (ts, symbol, horizon, model_type, predicted)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(ts, symbol, model_type, horizon) DO UPDATE SET
			predicted = excluded.predicted
		WHERE predictions.actual IS NULL
	`, p.Timestamp.UTC().Format(time.RFC3339), p.Symbol, p.Horizon, string(p.Model), p.Predicted)
	if err != nil {
		return fmt.Errorf("storage.LogPrediction: %w", err)
	}
	return nil
}

// Unresolved devuelve las predicciones sin actual cuyo ts objetivo ya pasó.
// Relee la tabla en cada llamada; el orden es el de inserción (estable).
func (s *SQLiteStorage) Unresolved(ctx context.Context, asOf time.Time) ([]domain.Prediction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, symbol, horizon, model_type, predicted
		FROM predictions
		WHERE actual IS NULL AND ts < ?
		ORDER BY id
	`, asOf.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("storage.Unresolved: query: %w", err)
	}
	defer rows.Close()

	var preds []domain.Prediction
	for rows.Next() {
		var p domain.Prediction
		var raw string
		if err := rows.Scan(&p.ID, &raw, &p.Symbol, &p.Horizon, (*string)(&p.Model), &p.Predicted); err != nil {
			return nil, fmt.Errorf("storage.Unresolved: scan: %w", err)
		}
		ts, ok := parseTimestamp(raw)
		if !ok {
			// Fila con timestamp corrupto: se salta y se deja constancia,
			// nunca tumba la reconciliación entera.
			slog.Warn("prediction with unparseable timestamp, skipping", "id", p.ID, "raw", raw)
			continue
		}
		p.Timestamp = ts
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

// ResolveActuals aplica un lote de resoluciones en una única transacción.
// Solo toca filas todavía pendientes: re-aplicar el mismo lote es un no-op.
func (s *SQLiteStorage) ResolveActuals(ctx context.Context, resolutions []domain.Resolution) error {
	if len(resolutions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.ResolveActuals: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE predictions SET actual = ?, error = ?
		WHERE id = ? AND actual IS NULL
	`)
	if err != nil {
		return fmt.Errorf("storage.ResolveActuals: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range resolutions {
		if _, err := stmt.ExecContext(ctx, r.Actual, r.Error, r.ID); err != nil {
			return fmt.Errorf("storage.ResolveActuals: resolve %d: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.ResolveActuals: commit: %w", err)
	}
	return nil
}

// Latest devuelve la predicción más reciente (por ts objetivo) del triple dado.
func (s *SQLiteStorage) Latest(ctx context.Context, model domain.ModelType, horizon, symbol string) (domain.Prediction, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ts, symbol, horizon, model_type, predicted, actual, error
		FROM predictions
		WHERE model_type = ? AND horizon = ? AND symbol = ?
		ORDER BY ts DESC LIMIT 1
	`, string(model), horizon, symbol)

	p, ok, err := scanPrediction(row)
	if err != nil {
		return domain.Prediction{}, false, fmt.Errorf("storage.Latest: %w", err)
	}
	return p, ok, nil
}

// ResolvedInWindow devuelve las predicciones ya resueltas del triple dado
// con ts dentro de [from, to].
func (s *SQLiteStorage) ResolvedInWindow(ctx context.Context, model domain.ModelType, horizon, symbol string, from, to time.Time) ([]domain.Prediction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, symbol, horizon, model_type, predicted, actual, error
		FROM predictions
		WHERE model_type = ? AND horizon = ? AND symbol = ?
		  AND actual IS NOT NULL
		  AND ts BETWEEN ? AND ?
		ORDER BY ts
	`, string(model), horizon, symbol,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("storage.ResolvedInWindow: query: %w", err)
	}
	defer rows.Close()

	var preds []domain.Prediction
	for rows.Next() {
		p, ok, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.ResolvedInWindow: %w", err)
		}
		if !ok {
			continue
		}
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

// scanner cubre tanto *sql.Row como *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanPrediction lee una fila completa del ledger. ok=false si no había fila
// o su timestamp no parsea (fila descartada por calidad de datos).
func scanPrediction(row scanner) (domain.Prediction, bool, error) {
	var p domain.Prediction
	var raw string
	var actual, errVal sql.NullFloat64

	err := row.Scan(&p.ID, &raw, &p.Symbol, &p.Horizon, (*string)(&p.Model), &p.Predicted, &actual, &errVal)
	if err == sql.ErrNoRows {
		return domain.Prediction{}, false, nil
	}
	if err != nil {
		return domain.Prediction{}, false, err
	}

	ts, ok := parseTimestamp(raw)
	if !ok {
		slog.Warn("prediction with unparseable timestamp, skipping", "id", p.ID, "raw", raw)
		return domain.Prediction{}, false, nil
	}
	p.Timestamp = ts

	if actual.Valid {
		p.Actual = &actual.Float64
	}
	if errVal.Valid {
		p.Error = &errVal.Float64
	}
	return p, true, nil
}
