package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/forecastbot/internal/domain"
)

// PredictionStore persiste el ledger de predicciones.
type PredictionStore interface {
	// LogPrediction añade una predicción nueva al ledger (sin actual todavía).
	LogPrediction(ctx context.Context, p domain.Prediction) error

	// Unresolved devuelve las predicciones sin precio real cuyo timestamp
	// objetivo ya pasó (estrictamente anterior a asOf). Orden estable.
	Unresolved(ctx context.Context, asOf time.Time) ([]domain.Prediction, error)

	// ResolveActuals aplica un lote de resoluciones en una sola escritura.
	// Cada predicción se resuelve exactamente una vez; re-aplicar el mismo
	// lote es un no-op.
	ResolveActuals(ctx context.Context, resolutions []domain.Resolution) error

	// Latest devuelve la predicción más reciente (resuelta o no) para el
	// triple dado. ok=false si el ledger no tiene ninguna.
	Latest(ctx context.Context, model domain.ModelType, horizon, symbol string) (domain.Prediction, bool, error)

	// ResolvedInWindow devuelve las predicciones resueltas del triple dado
	// con timestamp dentro de [from, to].
	ResolvedInWindow(ctx context.Context, model domain.ModelType, horizon, symbol string, from, to time.Time) ([]domain.Prediction, error)
}
