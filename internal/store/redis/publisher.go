// Package redis publishes signal snapshots and action events to Redis
// for external consumers (dashboards, downstream bots). Publishing is
// best-effort: a failed write is logged by the caller and never blocks
// the pipeline.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"scalpflow/internal/model"
	"scalpflow/internal/state"
)

const (
	latestKeyPrefix = "scalpflow:signal:latest:"
	actionStream    = "scalpflow:actions"

	// Stream trimming: enough for a few days of triggered actions.
	actionStreamMaxLen = 10000
	defaultLatestTTL   = 30 * time.Minute
)

// Config configures the Redis publisher.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher writes the latest per-symbol signal snapshot and appends
// triggered actions to a capped stream.
type Publisher struct {
	client *goredis.Client
}

// New creates a Publisher and pings the server.
func New(cfg Config) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{client: client}, nil
}

// Snapshot is the per-cycle signal summary published for a symbol.
type Snapshot struct {
	Timestamp time.Time      `json:"timestamp"`
	Symbol    string         `json:"symbol"`
	Score     int            `json:"score"`
	Signals   map[string]int `json:"signals"`
	Flag      string         `json:"flag,omitempty"`
}

// PublishSnapshot stores the latest snapshot for a symbol with a TTL so
// stale entries age out when a symbol stops being processed.
func (p *Publisher) PublishSnapshot(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot: %w", err)
	}
	key := latestKeyPrefix + state.NormalizeSymbol(snap.Symbol)
	if err := p.client.Set(ctx, key, data, defaultLatestTTL).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

// Name makes Publisher usable as a dispatch handler under "publish_redis".
func (p *Publisher) Name() string { return "publish_redis" }

// Handle appends a triggered action to the capped action stream.
func (p *Publisher) Handle(ctx context.Context, event model.ActionEvent) error {
	signals, _ := json.Marshal(event.Signals)
	err := p.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: actionStream,
		MaxLen: actionStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"ts":      event.Timestamp.UTC().Format(time.RFC3339),
			"symbol":  event.Symbol,
			"action":  string(event.Action),
			"score":   event.Score,
			"price":   event.Price,
			"signals": string(signals),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: xadd %s: %w", actionStream, err)
	}
	return nil
}

// Client exposes the underlying client for liveness probes.
func (p *Publisher) Client() *goredis.Client { return p.client }

// Close releases the underlying client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
