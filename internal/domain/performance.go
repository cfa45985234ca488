package domain

// PerformanceMetrics son las métricas de retorno/riesgo derivadas de la
// serie de valor del portfolio. Con menos de 2 muestras todo es 0 (neutral),
// nunca un error.
type PerformanceMetrics struct {
	TotalReturn          float64
	AnnualizedReturn     float64
	AnnualizedVolatility float64
	SharpeRatio          float64
	// MaxDrawdown es siempre <= 0; 0 significa serie no decreciente.
	MaxDrawdown float64
}
