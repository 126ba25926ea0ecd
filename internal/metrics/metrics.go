package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the signal engine.
type Metrics struct {
	CyclesTotal     prometheus.Counter
	CycleDur        prometheus.Histogram
	StaleSkips      *prometheus.CounterVec // labels: symbol
	FetchFailures   *prometheus.CounterVec // labels: symbol
	HandlerErrors   prometheus.Counter
	ActionsTotal    *prometheus.CounterVec // labels: symbol, action
	CompositeScore  *prometheus.GaugeVec   // labels: symbol
	StatePersistDur prometheus.Histogram
	RedisPublishDur prometheus.Histogram
	WSClients       prometheus.Gauge
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_cycles_total",
			Help: "Total evaluation cycles completed",
		}),
		CycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigengine_cycle_duration_seconds",
			Help:    "Fetch-to-dispatch latency per symbol cycle",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}),
		StaleSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_stale_skips_total",
			Help: "Cycles skipped because the latest candle was stale",
		}, []string{"symbol"}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_fetch_failures_total",
			Help: "Candle fetches that exhausted all retries",
		}, []string{"symbol"}),
		HandlerErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_handler_errors_total",
			Help: "Action handler invocations that returned an error",
		}),
		ActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_actions_total",
			Help: "Actions dispatched, by symbol and action",
		}, []string{"symbol", "action"}),
		CompositeScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sigengine_composite_score",
			Help: "Latest composite MACD score per symbol",
		}, []string{"symbol"}),
		StatePersistDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigengine_state_persist_duration_seconds",
			Help:    "Engine state save latency",
			Buckets: prometheus.DefBuckets,
		}),
		RedisPublishDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigengine_redis_publish_duration_seconds",
			Help:    "Redis snapshot publish latency",
			Buckets: prometheus.DefBuckets,
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sigengine_ws_clients",
			Help: "Currently connected WebSocket clients",
		}),
	}

	prometheus.MustRegister(
		m.CyclesTotal,
		m.CycleDur,
		m.StaleSkips,
		m.FetchFailures,
		m.HandlerErrors,
		m.ActionsTotal,
		m.CompositeScore,
		m.StatePersistDur,
		m.RedisPublishDur,
		m.WSClients,
	)

	return m
}

// HealthStatus represents the engine's view of its dependencies.
type HealthStatus struct {
	mu sync.RWMutex

	FeedOK         bool      `json:"feed_ok"`
	LastCycleTime  time.Time `json:"last_cycle_time"`
	RedisConnected bool      `json:"redis_connected"`
	JournalOK      bool      `json:"journal_ok"`
	Symbols        []string  `json:"symbols"`

	RedisLatencyMs   float64   `json:"redis_latency_ms"`
	JournalLatencyMs float64   `json:"journal_latency_ms"`
	LastCheckAt      time.Time `json:"last_check_at"`
	StartedAt        time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		FeedOK:    true,
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetFeedOK(v bool) {
	h.mu.Lock()
	h.FeedOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastCycleTime(t time.Time) {
	h.mu.Lock()
	h.LastCycleTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetSymbols(symbols []string) {
	h.mu.Lock()
	h.Symbols = symbols
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckJournal pings the SQLite journal and records latency + health.
func (h *HealthStatus) CheckJournal(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.JournalOK = err == nil
	h.JournalLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks until ctx ends.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, db *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if db != nil {
					h.CheckJournal(probeCtx, db)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.FeedOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	cycleAge := ""
	if !h.LastCycleTime.IsZero() {
		cycleAge = time.Since(h.LastCycleTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status           string   `json:"status"`
		Uptime           string   `json:"uptime"`
		FeedOK           bool     `json:"feed_ok"`
		LastCycleTime    string   `json:"last_cycle_time"`
		CycleAge         string   `json:"cycle_age"`
		RedisConnected   bool     `json:"redis_connected"`
		RedisLatencyMs   float64  `json:"redis_latency_ms"`
		JournalOK        bool     `json:"journal_ok"`
		JournalLatencyMs float64  `json:"journal_latency_ms"`
		Symbols          []string `json:"symbols"`
		LastCheckAt      string   `json:"last_check_at"`
	}{
		Status:           overallStatus,
		Uptime:           time.Since(h.StartedAt).Round(time.Second).String(),
		FeedOK:           h.FeedOK,
		LastCycleTime:    h.LastCycleTime.Format(time.RFC3339),
		CycleAge:         cycleAge,
		RedisConnected:   h.RedisConnected,
		RedisLatencyMs:   h.RedisLatencyMs,
		JournalOK:        h.JournalOK,
		JournalLatencyMs: h.JournalLatencyMs,
		Symbols:          h.Symbols,
		LastCheckAt:      h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics, /healthz and /ws.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server. wsHandler and api may
// be nil when the gateway or the read API is disabled.
func NewServer(addr string, health *HealthStatus, wsHandler http.HandlerFunc, api http.Handler) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)
	if wsHandler != nil {
		mux.HandleFunc("/ws", wsHandler)
	}
	if api != nil {
		mux.Handle("/api/", api)
	}

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
