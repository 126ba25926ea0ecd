// Package macd computes the multi-layer MACD bank over close-price series.
//
// Seven fixed (fast, slow, signal) period triples run in parallel at
// geometrically increasing horizons (L1..L7). All computation is pure:
// no shared state, no side effects, no failure modes. Series shorter than
// slow+signal candles produce numerically degenerate output; supplying
// enough history is the caller's responsibility.
package macd

// LayerConfig is one (fast, slow, signal) period triple.
type LayerConfig struct {
	Fast   int
	Slow   int
	Signal int
	Label  string
}

// Layers is the fixed, process-wide layer table. Order matters: layer
// flags are persisted positionally in this order.
var Layers = []LayerConfig{
	{Fast: 12, Slow: 26, Signal: 9, Label: "L1"},
	{Fast: 36, Slow: 78, Signal: 27, Label: "L2"},
	{Fast: 72, Slow: 156, Signal: 54, Label: "L3"},
	{Fast: 144, Slow: 312, Signal: 108, Label: "L4"},
	{Fast: 432, Slow: 936, Signal: 324, Label: "L5"},
	{Fast: 900, Slow: 1950, Signal: 675, Label: "L6"},
	{Fast: 4500, Slow: 9750, Signal: 3375, Label: "L7"},
}

// NumLayers is the size of the layer bank.
const NumLayers = 7

// Series holds the per-index MACD output for one layer.
type Series struct {
	MACDLine   []float64
	SignalLine []float64
	Histogram  []float64
}

// EMA computes an exponential moving average over the series using the
// recursive convention: seeded by the first value, then
// ema[i] = ema[i-1] + alpha*(x[i] - ema[i-1]) with alpha = 2/(period+1).
func EMA(series []float64, period int) []float64 {
	if len(series) == 0 {
		return nil
	}
	if period < 1 {
		period = 1
	}
	alpha := 2.0 / float64(period+1)
	out := make([]float64, len(series))
	out[0] = series[0]
	for i := 1; i < len(series); i++ {
		out[i] = out[i-1] + alpha*(series[i]-out[i-1])
	}
	return out
}

// Compute calculates the MACD line, signal line, and histogram for one
// layer over a close-price series.
func Compute(closes []float64, cfg LayerConfig) Series {
	fast := EMA(closes, cfg.Fast)
	slow := EMA(closes, cfg.Slow)

	macdLine := make([]float64, len(closes))
	for i := range closes {
		macdLine[i] = fast[i] - slow[i]
	}

	signalLine := EMA(macdLine, cfg.Signal)

	histogram := make([]float64, len(closes))
	for i := range closes {
		histogram[i] = macdLine[i] - signalLine[i]
	}

	return Series{
		MACDLine:   macdLine,
		SignalLine: signalLine,
		Histogram:  histogram,
	}
}

// ComputeBank runs every configured layer over the same close series.
// Results are keyed by layer label.
func ComputeBank(closes []float64) map[string]Series {
	out := make(map[string]Series, len(Layers))
	for _, cfg := range Layers {
		out[cfg.Label] = Compute(closes, cfg)
	}
	return out
}
