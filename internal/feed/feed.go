// Package feed supplies ordered OHLCV candle series for a symbol and
// timeframe, newest last, plus the one-time bootstrap cache that seeds
// history to disk on first run.
package feed

import (
	"context"
	"errors"

	"scalpflow/internal/model"
)

// ErrUnavailable is returned once a source has exhausted its retries.
var ErrUnavailable = errors.New("feed: data source unavailable")

// Source fetches candles for a symbol/timeframe. Implementations retry
// transient failures a bounded number of times before giving up with
// ErrUnavailable.
type Source interface {
	Fetch(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error)
}
