// Package paper tracks a simple flat/long position per symbol for
// paper-trading bookkeeping and appends completed transitions to a
// per-symbol CSV trade log.
package paper

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"scalpflow/internal/model"
	"scalpflow/internal/state"
)

// Trader owns the per-symbol position map. Transitions follow a strict
// two-state machine: flat --BUY--> long, long --SELL--> flat. Everything
// else is a deliberate no-op.
type Trader struct {
	mu        sync.Mutex
	positions map[string]model.Position
	baseDir   string
}

// NewTrader creates a paper trader writing trade logs under baseDir.
// An empty baseDir disables the CSV log.
func NewTrader(baseDir string) (*Trader, error) {
	if baseDir != "" {
		if err := os.MkdirAll(baseDir, 0o755); err != nil {
			return nil, fmt.Errorf("paper: mkdir %s: %w", baseDir, err)
		}
	}
	return &Trader{
		positions: make(map[string]model.Position),
		baseDir:   baseDir,
	}, nil
}

// Position returns the current position for a symbol (flat if never traded).
func (t *Trader) Position(symbol string) model.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.positions[symbol]; ok {
		return p
	}
	return model.Position{State: model.PositionFlat}
}

// ProcessSignal applies an action at the given trigger price. Invalid
// transitions (BUY while long, SELL while flat) change nothing and log
// nothing. The returned bool reports whether a transition happened.
func (t *Trader) ProcessSignal(symbol string, action model.Action, price float64, ts time.Time) bool {
	t.mu.Lock()
	pos, ok := t.positions[symbol]
	if !ok {
		pos = model.Position{State: model.PositionFlat}
	}

	var pnl float64
	switch {
	case action == model.ActionBuy && pos.State == model.PositionFlat:
		pos.State = model.PositionLong
		pos.EntryPrice = price
		pos.LastAction = model.ActionBuy

	case action == model.ActionSell && pos.State == model.PositionLong:
		pnl = price - pos.EntryPrice
		pos.State = model.PositionFlat
		pos.EntryPrice = 0
		pos.RealizedPnL += pnl
		pos.LastAction = model.ActionSell

	default:
		t.mu.Unlock()
		return false
	}

	t.positions[symbol] = pos
	t.mu.Unlock()

	t.logTrade(symbol, action, price, pnl, pos.State, ts)
	return true
}

// logTrade appends one row to the symbol's paper-trade CSV, writing the
// header when the file is new.
func (t *Trader) logTrade(symbol string, action model.Action, price, pnl float64, st model.PositionState, ts time.Time) {
	if t.baseDir == "" {
		return
	}

	path := filepath.Join(t.baseDir, state.NormalizeSymbol(symbol)+"_paper_trades.csv")
	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("[paper] %s: open trade log: %v", symbol, err)
		return
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		w.Write([]string{"timestamp", "symbol", "action", "price", "pnl", "position"})
	}
	w.Write([]string{
		ts.UTC().Format(time.RFC3339),
		symbol,
		string(action),
		strconv.FormatFloat(price, 'f', -1, 64),
		strconv.FormatFloat(pnl, 'f', -1, 64),
		string(st),
	})
	w.Flush()
	if err := w.Error(); err != nil {
		log.Printf("[paper] %s: write trade log: %v", symbol, err)
	}
}
