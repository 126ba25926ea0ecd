package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"scalpflow/internal/model"
)

func TestBinanceSource_FetchParsesKlines(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `[
			[1717243200000, "68000.1", "68100.0", "67900.5", "68050.2", "12.5", 1717243499999, "0", 0, "0", "0", "0"],
			[1717243500000, "68050.2", "68200.0", "68000.0", "68150.9", "9.1", 1717243799999, "0", 0, "0", "0", "0"]
		]`)
	}))
	defer srv.Close()

	s := NewBinanceSource()
	s.baseURL = srv.URL
	s.retryDelay = 0

	candles, err := s.Fetch(context.Background(), "BTC/USDT", "5m", 500)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
	if candles[0].Close != 68050.2 || candles[1].Close != 68150.9 {
		t.Errorf("closes not parsed: %+v", candles)
	}
	if !candles[1].TS.After(candles[0].TS) {
		t.Error("candles must be newest last")
	}
	want := time.UnixMilli(1717243200000).UTC()
	if !candles[0].TS.Equal(want) {
		t.Errorf("expected TS %s, got %s", want, candles[0].TS)
	}
	for _, fragment := range []string{"symbol=BTCUSDT", "interval=5m", "limit=500"} {
		if !containsParam(gotQuery, fragment) {
			t.Errorf("query %q missing %q", gotQuery, fragment)
		}
	}
}

func containsParam(query, fragment string) bool {
	for i := 0; i+len(fragment) <= len(query); i++ {
		if query[i:i+len(fragment)] == fragment {
			return true
		}
	}
	return false
}

func TestBinanceSource_RetriesThenUnavailable(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewBinanceSource()
	s.baseURL = srv.URL
	s.maxRetries = 3
	s.retryDelay = 0

	_, err := s.Fetch(context.Background(), "BTC/USDT", "5m", 100)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestBinanceSource_RecoversMidRetry(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `[[1717243200000, "1", "2", "0.5", "1.5", "10", 0, "0", 0, "0", "0", "0"]]`)
	}))
	defer srv.Close()

	s := NewBinanceSource()
	s.baseURL = srv.URL
	s.retryDelay = 0

	candles, err := s.Fetch(context.Background(), "ETH/USDT", "5m", 100)
	if err != nil {
		t.Fatalf("fetch should recover on second attempt: %v", err)
	}
	if len(candles) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(candles))
	}
}

// stubSource counts fetches and serves a fixed series.
type stubSource struct {
	calls   int
	candles []model.Candle
	err     error
}

func (s *stubSource) Fetch(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	s.calls++
	return s.candles, s.err
}

func TestBootstrap_FetchesOnceThenUsesCache(t *testing.T) {
	dir := t.TempDir()
	src := &stubSource{candles: []model.Candle{
		{TS: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{TS: time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 12},
	}}

	b, err := NewBootstrap(dir, src)
	if err != nil {
		t.Fatal(err)
	}

	first, err := b.LoadOrFetch(context.Background(), "BTC/USDT", "5m", 100)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if src.calls != 1 || len(first) != 2 {
		t.Fatalf("expected 1 fetch and 2 candles, got %d/%d", src.calls, len(first))
	}

	second, err := b.LoadOrFetch(context.Background(), "BTC/USDT", "5m", 100)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if src.calls != 1 {
		t.Errorf("second load should hit the cache, fetches=%d", src.calls)
	}
	if len(second) != 2 || !second[0].TS.Equal(first[0].TS) || second[1].Close != 2 {
		t.Errorf("cache round-trip mismatch: %+v", second)
	}
}

func TestBootstrap_CorruptCacheRefetches(t *testing.T) {
	dir := t.TempDir()
	src := &stubSource{candles: []model.Candle{
		{TS: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
	}}
	b, err := NewBootstrap(dir, src)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(b.path("BTC/USDT", "5m"), []byte("garbage,not,a\ncandle"), 0o644); err != nil {
		t.Fatal(err)
	}

	candles, err := b.LoadOrFetch(context.Background(), "BTC/USDT", "5m", 100)
	if err != nil {
		t.Fatal(err)
	}
	if src.calls != 1 || len(candles) != 1 {
		t.Errorf("corrupt cache should trigger a fetch, calls=%d candles=%d", src.calls, len(candles))
	}
}

func TestBootstrap_SourceFailurePropagates(t *testing.T) {
	src := &stubSource{err: ErrUnavailable}
	b, err := NewBootstrap(t.TempDir(), src)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.LoadOrFetch(context.Background(), "BTC/USDT", "5m", 100); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
