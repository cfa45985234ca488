package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/forecastbot/internal/domain"
)

// PriceSource es la fuente remota de datos de mercado. Los fallos
// transitorios se toleran devolviendo ok=false / slice vacío, no errores
// fatales: el siguiente ciclo lo reintenta.
type PriceSource interface {
	// FetchLatest devuelve la última barra horaria completada del símbolo.
	// ok=false si la fuente no tiene datos ahora mismo.
	FetchLatest(ctx context.Context, symbol string) (domain.Candle, bool, error)

	// FetchRange devuelve las barras horarias del símbolo en [start, end].
	FetchRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.Candle, error)
}

// CandleStore es la fuente LOCAL de precios realizados: la cache de barras
// que alimenta el ciclo de datos. Se consulta antes que la fuente remota.
type CandleStore interface {
	// SaveCandle guarda (upsert) una barra en la cache local.
	SaveCandle(ctx context.Context, c domain.Candle) error

	// CloseAt devuelve el precio de cierre del símbolo en el instante dado.
	// ok=false si la cache no tiene esa barra.
	CloseAt(ctx context.Context, symbol string, ts time.Time) (float64, bool, error)
}
