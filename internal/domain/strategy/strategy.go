package strategy

// ActionKind es el tipo de decisión de trading.
type ActionKind string

const (
	ActionBuy  ActionKind = "BUY"
	ActionSell ActionKind = "SELL"
	ActionHold ActionKind = "HOLD"
)

// Action es la decisión pura de la estrategia: qué hacer y con qué fracción
// del recurso correspondiente (cash para BUY, posición para SELL).
type Action struct {
	Kind     ActionKind
	Fraction float64
}

// Config parametriza la estrategia de umbrales. Los umbrales son simétricos
// por defecto (±2%) pero configurables de forma independiente.
type Config struct {
	BuyThresholdPct  float64 // comprar si el cambio predicho supera este %
	SellThresholdPct float64 // vender si el cambio predicho cae por debajo de -este %
	BuyCashFraction  float64 // fracción del cash a invertir en cada compra
	SellHoldFraction float64 // fracción de la posición a liquidar en cada venta
}

// DefaultConfig devuelve la parametrización clásica: banda de ±2%,
// compras del 10% del cash y ventas del 25% de la posición.
func DefaultConfig() Config {
	return Config{
		BuyThresholdPct:  0.02,
		SellThresholdPct: 0.02,
		BuyCashFraction:  0.10,
		SellHoldFraction: 0.25,
	}
}

// Decide es la única función de decisión del sistema: la comparten el path
// live y el backtest para que los dos operen con exactamente la misma lógica.
// Es pura a propósito: nada de I/O, testeable en aislamiento.
func Decide(predictedChangePct float64, cfg Config) Action {
	switch {
	case predictedChangePct > cfg.BuyThresholdPct:
		return Action{Kind: ActionBuy, Fraction: cfg.BuyCashFraction}
	case predictedChangePct < -cfg.SellThresholdPct:
		return Action{Kind: ActionSell, Fraction: cfg.SellHoldFraction}
	default:
		return Action{Kind: ActionHold}
	}
}
