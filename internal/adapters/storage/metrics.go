package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/forecastbot/internal/domain"
)

// StoreMetrics añade una fila al log de métricas (append-only, nunca se muta).
func (s *SQLiteStorage) StoreMetrics(ctx context.Context, rec domain.MetricRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metrics (computed_at, model_type, horizon, symbol, mae, rmse, mape)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ComputedAt.UTC().Format(time.RFC3339), string(rec.Model), rec.Horizon, rec.Symbol,
		rec.Metrics.MAE, rec.Metrics.RMSE, rec.Metrics.MAPE)
	if err != nil {
		return fmt.Errorf("storage.StoreMetrics: %w", err)
	}
	return nil
}

// MetricHistory devuelve la serie temporal de una métrica concreta de los
// últimos days días. Los datos legacy no llevaban símbolo: si ninguna fila
// candidata tiene símbolo, el filtro se omite (compatibilidad, documentado).
func (s *SQLiteStorage) MetricHistory(ctx context.Context, model domain.ModelType, horizon, symbol, metricName string, days int) ([]domain.MetricPoint, error) {
	col, err := metricColumn(metricName)
	if err != nil {
		return nil, fmt.Errorf("storage.MetricHistory: %w", err)
	}

	from := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)

	filterSymbol := symbol != ""
	if filterSymbol {
		var withSymbol int
		err := s.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM metrics
			WHERE model_type = ? AND horizon = ? AND computed_at >= ? AND symbol <> ''
		`, string(model), horizon, from).Scan(&withSymbol)
		if err != nil {
			return nil, fmt.Errorf("storage.MetricHistory: legacy check: %w", err)
		}
		filterSymbol = withSymbol > 0
	}

	query := `SELECT computed_at, ` + col + ` FROM metrics
		WHERE model_type = ? AND horizon = ? AND computed_at >= ?`
	args := []any{string(model), horizon, from}
	if filterSymbol {
		query += ` AND symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY computed_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.MetricHistory: query: %w", err)
	}
	defer rows.Close()

	var points []domain.MetricPoint
	for rows.Next() {
		var raw string
		var v float64
		if err := rows.Scan(&raw, &v); err != nil {
			return nil, fmt.Errorf("storage.MetricHistory: scan: %w", err)
		}
		ts, ok := parseTimestamp(raw)
		if !ok {
			continue
		}
		points = append(points, domain.MetricPoint{Timestamp: ts, Value: v})
	}
	return points, rows.Err()
}

// metricColumn valida el nombre de métrica contra la lista cerrada de
// columnas. Nada de interpolar input arbitrario en el SQL.
func metricColumn(name string) (string, error) {
	switch name {
	case "mae", "rmse", "mape":
		return name, nil
	default:
		return "", fmt.Errorf("unknown metric %q", name)
	}
}
