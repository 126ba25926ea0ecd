package model

import "time"

// Candle represents one OHLCV row for a symbol/timeframe.
// Sequences are ordered by strictly increasing timestamp, newest last.
type Candle struct {
	TS     time.Time `json:"ts"` // candle open time (UTC)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Closes extracts the close-price series from a candle slice.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
