// Package state persists per-symbol engine state across restarts.
//
// One JSON record per symbol, written atomically (temp file + rename) so
// a crash can never leave a half-written record behind. Missing or
// corrupt records load as zero defaults — the "first run" case is never
// an error.
package state

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"scalpflow/internal/macd"
	"scalpflow/internal/model"
	"scalpflow/internal/signal"
)

// EngineState is the durable bridge between cycles: the Rule Evaluator
// reads the previous cycle's flags from here alongside the fresh vector.
type EngineState struct {
	LastTimestamp          *time.Time       `json:"last_timestamp"`
	LastScore              int              `json:"last_score"`
	LastLayerFlags         []int            `json:"last_layer_flags"`
	LastSignalFlag         model.Action     `json:"last_signal_flag"`
	LastHistogramDirection signal.Direction `json:"last_histogram_direction"`
	LastHistogram          float64          `json:"last_histogram"`
	LastHistogramPrev      float64          `json:"last_histogram_prev"`
}

// Default returns the zero-value state used on first run for a symbol.
func Default() EngineState {
	return EngineState{
		LastLayerFlags: make([]int, macd.NumLayers),
	}
}

// FromResult builds the state record to persist after a successful cycle.
func FromResult(res *signal.Result) EngineState {
	ts := res.Timestamp
	flags := make([]int, len(res.Flags))
	copy(flags, res.Flags)
	return EngineState{
		LastTimestamp:          &ts,
		LastScore:              res.Score,
		LastLayerFlags:         flags,
		LastSignalFlag:         res.Flag,
		LastHistogramDirection: res.Direction,
		LastHistogram:          res.Histogram,
		LastHistogramPrev:      res.HistogramPrev,
	}
}

// Store is a directory of per-symbol state records.
type Store struct {
	mu  sync.Mutex
	dir string
}

// NewStore creates the state directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("state: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// NormalizeSymbol strips filesystem-unsafe characters from a symbol so
// "BTC/USDT" and "BTC-USDT" share the record "BTCUSDT".
func NormalizeSymbol(symbol string) string {
	out := make([]byte, 0, len(symbol))
	for i := 0; i < len(symbol); i++ {
		c := symbol[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			out = append(out, c)
		}
	}
	return string(out)
}

func (s *Store) path(symbol string) string {
	return filepath.Join(s.dir, NormalizeSymbol(symbol)+"_state.json")
}

// Load returns the stored state for a symbol, or defaults when no record
// exists or the record is unreadable. Corruption is logged, never fatal.
func (s *Store) Load(symbol string) EngineState {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(symbol))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[state] %s: read failed (%v), treating as first run", symbol, err)
		}
		return Default()
	}

	var st EngineState
	if err := json.Unmarshal(data, &st); err != nil {
		log.Printf("[state] %s: corrupt record (%v), treating as first run", symbol, err)
		return Default()
	}
	if len(st.LastLayerFlags) != macd.NumLayers {
		log.Printf("[state] %s: record has %d layer flags, want %d, treating as first run",
			symbol, len(st.LastLayerFlags), macd.NumLayers)
		return Default()
	}
	return st
}

// Save overwrites the record for a symbol atomically: write to a temp
// file in the same directory, then rename into place.
func (s *Store) Save(symbol string, st EngineState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal %s: %w", symbol, err)
	}

	final := s.path(symbol)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("state: write temp for %s: %w", symbol, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("state: rename for %s: %w", symbol, err)
	}
	return nil
}
