package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"scalpflow/internal/model"
	"scalpflow/internal/state"
)

// Bootstrap is the on-disk warm-up cache: candles are loaded from a CSV
// keyed by symbol+timeframe when present and parseable, otherwise
// fetched from the source and persisted for the next run.
type Bootstrap struct {
	dir    string
	source Source
}

// NewBootstrap creates the cache directory if needed.
func NewBootstrap(dir string, source Source) (*Bootstrap, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("bootstrap: mkdir %s: %w", dir, err)
	}
	return &Bootstrap{dir: dir, source: source}, nil
}

func (b *Bootstrap) path(symbol, timeframe string) string {
	return filepath.Join(b.dir, state.NormalizeSymbol(symbol)+"_"+timeframe+".csv")
}

// LoadOrFetch returns cached candles when the cache file parses, else
// delegates to the source and persists the result. An unreadable cache
// is logged and refetched, never fatal.
func (b *Bootstrap) LoadOrFetch(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	path := b.path(symbol, timeframe)

	if candles, err := readCSV(path); err == nil {
		log.Printf("[bootstrap] %s %s: loaded %d cached candles", symbol, timeframe, len(candles))
		return candles, nil
	} else if !os.IsNotExist(err) {
		log.Printf("[bootstrap] %s %s: cache unreadable (%v), fetching fresh", symbol, timeframe, err)
	}

	candles, err := b.source.Fetch(ctx, symbol, timeframe, limit)
	if err != nil {
		return nil, err
	}
	if err := writeCSV(path, candles); err != nil {
		log.Printf("[bootstrap] %s %s: cache write failed: %v", symbol, timeframe, err)
	} else {
		log.Printf("[bootstrap] %s %s: fetched and cached %d candles", symbol, timeframe, len(candles))
	}
	return candles, nil
}

var csvHeader = []string{"timestamp", "open", "high", "low", "close", "volume"}

func readCSV(path string) ([]model.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("cache %s: no data rows", path)
	}

	candles := make([]model.Candle, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != len(csvHeader) {
			return nil, fmt.Errorf("cache %s row %d: %d fields", path, i+1, len(row))
		}
		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return nil, fmt.Errorf("cache %s row %d: %w", path, i+1, err)
		}
		c := model.Candle{TS: ts.UTC()}
		for j, dst := range []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume} {
			v, err := strconv.ParseFloat(row[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("cache %s row %d: %w", path, i+1, err)
			}
			*dst = v
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func writeCSV(path string, candles []model.Candle) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write(csvHeader)
	for _, c := range candles {
		w.Write([]string{
			c.TS.UTC().Format(time.RFC3339),
			strconv.FormatFloat(c.Open, 'f', -1, 64),
			strconv.FormatFloat(c.High, 'f', -1, 64),
			strconv.FormatFloat(c.Low, 'f', -1, 64),
			strconv.FormatFloat(c.Close, 'f', -1, 64),
			strconv.FormatFloat(c.Volume, 'f', -1, 64),
		})
	}
	w.Flush()
	return w.Error()
}
