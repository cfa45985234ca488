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

// SaveVersion registra la metadata de un artefacto de modelo recién entrenado.
func (s *SQLiteStorage) SaveVersion(ctx context.Context, v domain.ModelVersion) error {
	rawParams, err := json.Marshal(v.Hyperparams)
	if err != nil {
		return fmt.Errorf("storage.SaveVersion: marshal hyperparams: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO model_versions
			(id, model_type, trained_at, range_from, range_to, hyperparams, mae, rmse, mape)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID, string(v.Type), v.TrainedAt.UTC().Format(time.RFC3339),
		v.DataRange.From.UTC().Format(time.RFC3339), v.DataRange.To.UTC().Format(time.RFC3339),
		string(rawParams), v.InitialMetrics.MAE, v.InitialMetrics.RMSE, v.InitialMetrics.MAPE)
	if err != nil {
		return fmt.Errorf("storage.SaveVersion: %w", err)
	}
	return nil
}

// LatestVersion devuelve la versión más reciente del tipo dado.
func (s *SQLiteStorage) LatestVersion(ctx context.Context, model domain.ModelType) (domain.ModelVersion, bool, error) {
	var v domain.ModelVersion
	var trainedAt, rangeFrom, rangeTo, rawParams string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, model_type, trained_at, range_from, range_to, hyperparams, mae, rmse, mape
		FROM model_versions
		WHERE model_type = ?
		ORDER BY trained_at DESC LIMIT 1
	`, string(model)).Scan(&v.ID, (*string)(&v.Type), &trainedAt, &rangeFrom, &rangeTo,
		&rawParams, &v.InitialMetrics.MAE, &v.InitialMetrics.RMSE, &v.InitialMetrics.MAPE)
	if err == sql.ErrNoRows {
		return domain.ModelVersion{}, false, nil
	}
	if err != nil {
		return domain.ModelVersion{}, false, fmt.Errorf("storage.LatestVersion: %w", err)
	}

	if ts, ok := parseTimestamp(trainedAt); ok {
		v.TrainedAt = ts
	}
	if ts, ok := parseTimestamp(rangeFrom); ok {
		v.DataRange.From = ts
	}
	if ts, ok := parseTimestamp(rangeTo); ok {
		v.DataRange.To = ts
	}
	if err := json.Unmarshal([]byte(rawParams), &v.Hyperparams); err != nil {
		slog.Warn("model version with corrupt hyperparams JSON", "id", v.ID, "err", err)
	}
	return v, true, nil
}
