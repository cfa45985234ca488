package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/forecastbot/internal/domain"
)

// PortfolioStore persiste el estado del portfolio, su log de transacciones
// y la serie histórica de valor.
type PortfolioStore interface {
	// LoadPortfolio carga el estado persistido; si no existe, devuelve
	// un portfolio limpio con el cash inicial dado (cold-start).
	LoadPortfolio(ctx context.Context, initialCash float64) (domain.Portfolio, error)

	// CommitOrder escribe el nuevo estado y su transacción en un único
	// commit atómico: tras un crash queda o el par viejo o el par nuevo,
	// nunca una mezcla.
	CommitOrder(ctx context.Context, state domain.Portfolio, tx domain.Transaction) error

	// SaveValueSample añade una muestra a la serie de valor del portfolio.
	SaveValueSample(ctx context.Context, sample domain.ValueSample) error

	// ValueHistory devuelve la serie de valor completa en orden temporal.
	ValueHistory(ctx context.Context) ([]domain.ValueSample, error)

	// Transactions devuelve las transacciones desde from, más recientes primero.
	Transactions(ctx context.Context, from time.Time) ([]domain.Transaction, error)
}
