package domain

import "time"

// ModelType identifica la familia de modelo que generó una predicción.
type ModelType string

const (
	ModelARIMA ModelType = "arima"
	ModelLSTM  ModelType = "lstm"
)

// TrackedModels son los modelos que el evaluador revisa en cada ciclo.
var TrackedModels = []ModelType{ModelARIMA, ModelLSTM}

// TrackedHorizons son los horizontes de predicción que se registran y evalúan.
var TrackedHorizons = []string{"1h", "3h", "24h", "72h"}

// Prediction es una entrada del ledger de predicciones.
// Timestamp es el instante OBJETIVO de la predicción (no cuándo se generó):
// una predicción a 24h hecha a las 10:00 tiene Timestamp = mañana 10:00.
type Prediction struct {
	ID        int64
	Timestamp time.Time
	Symbol    string
	Horizon   string // "1h" | "3h" | "24h" | "72h"
	Model     ModelType
	Predicted float64

	// Actual y Error se rellenan una única vez durante la reconciliación.
	// nil = todavía pendiente de resolver.
	Actual *float64
	Error  *float64
}

// Resolved devuelve true si la predicción ya tiene precio real asignado.
func (p Prediction) Resolved() bool {
	return p.Actual != nil
}

// PredictedChangePct devuelve el cambio relativo que la predicción implica
// respecto al precio actual. Devuelve 0 si current es 0.
func (p Prediction) PredictedChangePct(current float64) float64 {
	if current == 0 {
		return 0
	}
	return (p.Predicted - current) / current
}

// Resolution es el resultado de reconciliar una predicción pendiente:
// el precio realizado y el error firmado (predicho − real).
type Resolution struct {
	ID     int64
	Actual float64
	Error  float64
}

// NewResolution construye la resolución de una predicción con el precio real.
func NewResolution(p Prediction, actual float64) Resolution {
	return Resolution{
		ID:     p.ID,
		Actual: actual,
		Error:  p.Predicted - actual,
	}
}
