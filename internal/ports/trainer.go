package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/forecastbot/internal/domain"
)

// Trainer invoca el procedimiento externo de entrenamiento de un modelo.
// La llamada es bloqueante; un exit distinto de cero es un error que el
// controlador registra y traga — el sistema sigue con el modelo anterior.
type Trainer interface {
	Retrain(ctx context.Context, model domain.ModelType) error
}

// ModelRegistry cataloga las versiones de modelo entrenadas.
type ModelRegistry interface {
	// SaveVersion registra la metadata de un artefacto recién entrenado.
	SaveVersion(ctx context.Context, v domain.ModelVersion) error

	// LatestVersion devuelve la versión más reciente del tipo dado.
	// ok=false si nunca se ha entrenado ese tipo.
	LatestVersion(ctx context.Context, model domain.ModelType) (domain.ModelVersion, bool, error)
}

// Counters persiste los dos escalares del trigger por volumen de datos:
// filas nuevas desde el último retrain y el instante del último retrain.
type Counters interface {
	RowsSinceRetrain(ctx context.Context) (int, error)
	SetRowsSinceRetrain(ctx context.Context, n int) error
	LastRetrainAt(ctx context.Context) (time.Time, bool, error)
	SetLastRetrainAt(ctx context.Context, ts time.Time) error
}
