package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"scalpflow/internal/model"
	"scalpflow/internal/state"
)

const (
	defaultBaseURL    = "https://api.binance.com"
	defaultMaxRetries = 5
	defaultRetryDelay = 3 * time.Second

	// Binance caps klines at 1000 per request.
	maxKlineLimit = 1000
)

// BinanceSource fetches klines from the Binance public REST API.
type BinanceSource struct {
	baseURL    string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewBinanceSource creates a Binance candle source with default retry
// policy (5 attempts, 3s apart).
func NewBinanceSource() *BinanceSource {
	return &BinanceSource{
		baseURL:    defaultBaseURL,
		client:     &http.Client{Timeout: 15 * time.Second},
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}
}

// Fetch returns up to limit candles for symbol/timeframe, newest last.
// Transient failures are retried with a delay; after exhausting retries
// the error wraps ErrUnavailable.
func (s *BinanceSource) Fetch(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	if limit <= 0 || limit > maxKlineLimit {
		limit = maxKlineLimit
	}

	q := url.Values{}
	q.Set("symbol", strings.ToUpper(state.NormalizeSymbol(symbol)))
	q.Set("interval", timeframe)
	q.Set("limit", strconv.Itoa(limit))
	endpoint := s.baseURL + "/api/v3/klines?" + q.Encode()

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		candles, err := s.fetchOnce(ctx, endpoint)
		if err == nil {
			return candles, nil
		}
		lastErr = err
		log.Printf("[feed] %s %s: attempt %d/%d failed: %v", symbol, timeframe, attempt, s.maxRetries, err)

		if attempt < s.maxRetries {
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("%w: %s %s after %d attempts: %v", ErrUnavailable, symbol, timeframe, s.maxRetries, lastErr)
}

func (s *BinanceSource) fetchOnce(ctx context.Context, endpoint string) ([]model.Candle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	// Klines arrive as arrays: [openTime, open, high, low, close, volume, ...]
	// with prices as strings and times as epoch millis.
	var raw [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	candles := make([]model.Candle, 0, len(raw))
	for i, row := range raw {
		if len(row) < 6 {
			return nil, fmt.Errorf("kline row %d: %d fields", i, len(row))
		}
		var openMs int64
		if err := json.Unmarshal(row[0], &openMs); err != nil {
			return nil, fmt.Errorf("kline row %d: open time: %w", i, err)
		}
		c := model.Candle{TS: time.UnixMilli(openMs).UTC()}
		for j, dst := range []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume} {
			var str string
			if err := json.Unmarshal(row[j+1], &str); err != nil {
				return nil, fmt.Errorf("kline row %d field %d: %w", i, j+1, err)
			}
			v, err := strconv.ParseFloat(str, 64)
			if err != nil {
				return nil, fmt.Errorf("kline row %d field %d: %w", i, j+1, err)
			}
			*dst = v
		}
		candles = append(candles, c)
	}
	return candles, nil
}
