package domain

import "time"

// Portfolio es el estado del portfolio simulado: cash disponible y
// holdings por símbolo. Invariantes: cash >= 0 y toda cantidad presente
// en Holdings es > 0 (un símbolo vendido del todo se elimina del mapa).
type Portfolio struct {
	Cash     float64
	Holdings map[string]float64
}

// NewPortfolio crea un portfolio limpio con el cash inicial dado.
func NewPortfolio(initialCash float64) Portfolio {
	return Portfolio{
		Cash:     initialCash,
		Holdings: make(map[string]float64),
	}
}

// Quantity devuelve la cantidad en cartera del símbolo, 0 si no hay posición.
func (p Portfolio) Quantity(symbol string) float64 {
	return p.Holdings[symbol]
}

// Value devuelve el valor total del portfolio (cash + posiciones) usando
// los precios actuales. Un símbolo sin precio conocido vale 0.
func (p Portfolio) Value(prices map[string]float64) float64 {
	total := p.Cash
	for symbol, qty := range p.Holdings {
		total += qty * prices[symbol]
	}
	return total
}

// Clone devuelve una copia independiente del estado (el mapa incluido),
// para poder mutar y descartar sin tocar el original.
func (p Portfolio) Clone() Portfolio {
	holdings := make(map[string]float64, len(p.Holdings))
	for k, v := range p.Holdings {
		holdings[k] = v
	}
	return Portfolio{Cash: p.Cash, Holdings: holdings}
}

// TransactionType es el lado de una orden ejecutada.
type TransactionType string

const (
	TransactionBuy  TransactionType = "BUY"
	TransactionSell TransactionType = "SELL"
)

// Transaction es una entrada inmutable del log de transacciones. Se escribe
// en el mismo commit que la mutación de estado que representa: nunca hay
// transacción sin cambio de estado ni cambio de estado sin transacción.
type Transaction struct {
	ID        string
	Timestamp time.Time
	Symbol    string
	Type      TransactionType
	Quantity  float64
	Price     float64 // precio por unidad
	Total     float64 // valor total de la orden en cash
}

// ValueSample es una muestra de la serie temporal de valor del portfolio,
// la única entrada del analizador de rendimiento.
type ValueSample struct {
	Timestamp time.Time
	Value     float64
}
