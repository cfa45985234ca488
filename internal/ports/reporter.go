package ports

import (
	"context"

	"github.com/alejandrodnm/forecastbot/internal/domain"
)

// CycleSummary es el resumen de un ciclo de datos, para el reporter.
type CycleSummary struct {
	Symbol         string
	Price          float64
	Resolved       int
	Action         string
	PortfolioValue float64
	RetrainFired   bool
}

// AccuracyCell es una celda de la rejilla (modelo × horizonte) del informe.
type AccuracyCell struct {
	Model   domain.ModelType
	Horizon string
	Metrics *domain.MetricSet // nil = sin datos todavía
}

// Report es el informe completo bajo demanda (modo --report).
type Report struct {
	Portfolio    domain.Portfolio
	Prices       map[string]float64
	Transactions []domain.Transaction
	Performance  domain.PerformanceMetrics
	Accuracy     []AccuracyCell
	Versions     []domain.ModelVersion // última versión de cada modelo entrenado
}

// Reporter presenta el estado del sistema al usuario.
type Reporter interface {
	// CycleSummary imprime el resumen compacto de un ciclo.
	CycleSummary(ctx context.Context, s CycleSummary) error

	// Report imprime el informe completo con tablas.
	Report(ctx context.Context, r Report) error
}
