package domain

import "time"

// Candle es una barra OHLC horaria de mercado.
type Candle struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}
