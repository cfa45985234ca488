package ports

import (
	"context"

	"github.com/alejandrodnm/forecastbot/internal/domain"
)

// PredictedPoint es un punto de un forecast: instante objetivo y valor.
type PredictedPoint struct {
	Timestamp int64 // unix seconds UTC
	Value     float64
}

// Forecaster invoca la inferencia externa de un modelo ya entrenado.
// Devuelve la secuencia ordenada de puntos predichos hasta el horizonte.
// Sin modelo entrenado disponible devuelve slice vacío, no error.
type Forecaster interface {
	Forecast(ctx context.Context, model domain.ModelType, horizon string, symbol string) ([]PredictedPoint, error)
}
