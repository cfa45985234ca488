package ports

import (
	"context"

	"github.com/alejandrodnm/forecastbot/internal/domain"
)

// MetricStore persiste el log append-only de métricas de evaluación.
type MetricStore interface {
	// StoreMetrics añade una fila al log de métricas.
	StoreMetrics(ctx context.Context, rec domain.MetricRecord) error

	// MetricHistory devuelve la serie temporal de una métrica concreta
	// ("mae" | "rmse" | "mape") de los últimos days días. Si las filas
	// almacenadas no tienen símbolo (datos legacy), el filtro de símbolo
	// se omite — política de compatibilidad, no un bug.
	MetricHistory(ctx context.Context, model domain.ModelType, horizon, symbol, metricName string, days int) ([]domain.MetricPoint, error)
}
