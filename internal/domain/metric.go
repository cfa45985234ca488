package domain

import (
	"math"
	"time"
)

// MetricSet son las métricas de precisión de un (modelo, horizonte, símbolo)
// sobre una ventana de evaluación.
type MetricSet struct {
	MAE  float64
	RMSE float64
	// MAPE es NaN cuando ninguna fila de la ventana tiene actual != 0:
	// la división por cero no se coacciona a 0, se propaga como indefinida.
	MAPE float64
}

// Thresholds son los umbrales de re-entrenamiento, independientes por métrica
// y combinados con OR: basta con que una métrica se pase.
type Thresholds struct {
	MAPE float64
	MAE  float64
	RMSE float64
}

// Breached devuelve true si alguna métrica supera su umbral.
// Un MAPE indefinido (NaN) nunca cuenta como breach.
func (m MetricSet) Breached(t Thresholds) bool {
	if !math.IsNaN(m.MAPE) && m.MAPE > t.MAPE {
		return true
	}
	return m.MAE > t.MAE || m.RMSE > t.RMSE
}

// MetricRecord es una fila append-only del log de métricas.
type MetricRecord struct {
	ComputedAt time.Time
	Model      ModelType
	Horizon    string
	Symbol     string
	Metrics    MetricSet
}

// MetricPoint es un punto de la serie histórica de una métrica concreta.
type MetricPoint struct {
	Timestamp time.Time
	Value     float64
}
