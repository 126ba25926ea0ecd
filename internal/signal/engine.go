// Package signal turns the MACD layer bank's histograms into per-cycle
// directional flags, a composite score, and a histogram trend for the
// primary layer.
package signal

import (
	"log"
	"time"

	"scalpflow/internal/macd"
	"scalpflow/internal/model"
)

// Direction classifies the primary (L1) histogram trend between the
// previous and current candle.
type Direction string

const (
	DirectionRising  Direction = "rising"
	DirectionFalling Direction = "falling"
	DirectionFlat    Direction = "flat"
)

// ScoreThreshold is the composite score magnitude at which the persisted
// signal flag flips to BUY/SELL.
const ScoreThreshold = 3

// DefaultStaleAfter is how old the newest candle may be before the cycle
// is held (no signal, no state mutation).
const DefaultStaleAfter = 600 * time.Second

// Result is the transient output of one evaluation cycle for a symbol.
type Result struct {
	Timestamp time.Time      // evaluation instant (UTC)
	Symbol    string
	Score     int            // sum of layer flags, -7..+7
	Signals   map[string]int // layer label -> -1/0/+1
	Flags     []int          // same flags in fixed layer order
	Flag      model.Action   // BUY/SELL when |score| >= ScoreThreshold, else ""

	// Primary-layer histogram detail, for rule context and persistence.
	Direction     Direction
	Histogram     float64 // L1 histogram at the newest candle
	HistogramPrev float64 // L1 histogram one candle back

	Price    float64   // newest close, used as trigger price downstream
	CandleTS time.Time // newest candle timestamp
}

// Engine evaluates candle series into Results. It holds no per-symbol
// state; persistence is the caller's explicit, separate step.
type Engine struct {
	staleAfter time.Duration
}

// NewEngine creates a signal engine. staleAfter <= 0 uses the default.
func NewEngine(staleAfter time.Duration) *Engine {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Engine{staleAfter: staleAfter}
}

// Evaluate computes the signal vector for one symbol's candle series.
// Returns nil when the series is empty, too short to have two histogram
// points, or stale — a skip, not an error.
func (e *Engine) Evaluate(symbol string, candles []model.Candle, now time.Time) *Result {
	if len(candles) < 2 {
		log.Printf("[signal] %s: series too short (%d candles), holding", symbol, len(candles))
		return nil
	}

	last := candles[len(candles)-1]
	if now.Sub(last.TS) > e.staleAfter {
		log.Printf("[signal] %s: stale data, last candle %s is %v old, holding",
			symbol, last.TS.Format(time.RFC3339), now.Sub(last.TS).Round(time.Second))
		return nil
	}

	closes := model.Closes(candles)

	res := &Result{
		Timestamp: now.UTC(),
		Symbol:    symbol,
		Signals:   make(map[string]int, macd.NumLayers),
		Flags:     make([]int, macd.NumLayers),
		Price:     last.Close,
		CandleTS:  last.TS,
	}

	for i, cfg := range macd.Layers {
		s := macd.Compute(closes, cfg)
		n := len(s.Histogram)
		prev, curr := s.Histogram[n-2], s.Histogram[n-1]

		flag := crossover(prev, curr)
		res.Signals[cfg.Label] = flag
		res.Flags[i] = flag
		res.Score += flag

		if i == 0 {
			res.Histogram = curr
			res.HistogramPrev = prev
			res.Direction = direction(prev, curr)
		}
	}

	res.Flag = classify(res.Score)

	return res
}

// classify maps a composite score to the persisted signal flag.
func classify(score int) model.Action {
	switch {
	case score >= ScoreThreshold:
		return model.ActionBuy
	case score <= -ScoreThreshold:
		return model.ActionSell
	default:
		return ""
	}
}

// crossover flags a strict histogram sign change between two samples.
// Exact zero on either side never produces a nonzero flag.
func crossover(prev, curr float64) int {
	switch {
	case prev < 0 && curr > 0:
		return +1
	case prev > 0 && curr < 0:
		return -1
	default:
		return 0
	}
}

func direction(prev, curr float64) Direction {
	switch {
	case curr > prev:
		return DirectionRising
	case curr < prev:
		return DirectionFalling
	default:
		return DirectionFlat
	}
}
