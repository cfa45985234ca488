package domain

import "time"

// DataRange es la ventana de datos con la que se entrenó un modelo.
type DataRange struct {
	From time.Time
	To   time.Time
}

// ModelVersion es la metadata de un artefacto de modelo entrenado.
// El artefacto en sí (pesos, parámetros serializados) lo gestiona el
// procedimiento externo de entrenamiento; aquí solo se cataloga.
type ModelVersion struct {
	ID             string
	Type           ModelType
	TrainedAt      time.Time
	DataRange      DataRange
	Hyperparams    map[string]string
	InitialMetrics MetricSet
}
