// Package engine wires the feed, signal pipeline, state store, rule
// evaluator and action router into the long-running service loop.
package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"scalpflow/config"
	"scalpflow/internal/api"
	"scalpflow/internal/feed"
	"scalpflow/internal/gateway"
	"scalpflow/internal/journal"
	"scalpflow/internal/metrics"
	"scalpflow/internal/model"
	"scalpflow/internal/notification"
	"scalpflow/internal/paper"
	"scalpflow/internal/ringbuf"
	"scalpflow/internal/router"
	"scalpflow/internal/rule"
	"scalpflow/internal/signal"
	"scalpflow/internal/state"
	redisstore "scalpflow/internal/store/redis"
)

// Service runs the per-symbol evaluation loop.
type Service struct {
	cfg     *config.Config
	symbols []string

	source    feed.Source
	bootstrap *feed.Bootstrap
	engine    *signal.Engine
	states    *state.Store
	rules     *rule.Set
	router    *router.Router

	journal   *journal.Journal
	publisher *redisstore.Publisher
	hub       *gateway.Hub
	recent    *ringbuf.Ring

	met    *metrics.Metrics
	health *metrics.HealthStatus
	srv    *metrics.Server

	startedAt time.Time
}

// New builds the full service from configuration. Optional components
// (Telegram, webhook, Redis) are wired only when configured.
func New(cfg *config.Config) (*Service, error) {
	symbols := cfg.ParseSymbols()
	if len(symbols) == 0 {
		return nil, errors.New("no symbols configured")
	}

	source := feed.NewBinanceSource()
	bootstrap, err := feed.NewBootstrap(cfg.BootstrapDir, source)
	if err != nil {
		return nil, fmt.Errorf("bootstrap dir: %w", err)
	}
	states, err := state.NewStore(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("state dir: %w", err)
	}

	rules, err := rule.Load(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}

	jnl, err := journal.New(cfg.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	trader, err := paper.NewTrader(cfg.TradesDir)
	if err != nil {
		return nil, fmt.Errorf("paper trader: %w", err)
	}
	csvHandler, err := router.NewCSVHandler(cfg.ActionsDir)
	if err != nil {
		return nil, fmt.Errorf("actions dir: %w", err)
	}

	handlers := []router.Handler{
		router.ConsoleHandler{},
		csvHandler,
		router.NewJournalHandler(jnl),
		router.NewPaperHandler(trader),
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		tg := notification.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		handlers = append(handlers, router.NewNotifyHandler(router.HandlerTelegram, tg))
	}
	if cfg.WebhookURL != "" {
		wh := notification.NewWebhookNotifier(cfg.WebhookURL)
		handlers = append(handlers, router.NewNotifyHandler(router.HandlerWebhook, wh))
	}

	var publisher *redisstore.Publisher
	if cfg.RedisAddr != "" {
		publisher, err = redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		handlers = append(handlers, publisher)
	}

	rtr := router.New(handlers...)
	if err := rtr.LoadRoutes(cfg.RoutesFile); err != nil {
		return nil, fmt.Errorf("routes: %w", err)
	}

	hub := gateway.NewHub()
	recent := ringbuf.New(256)
	apiMux := api.NewRouter(api.Deps{
		Journal: jnl,
		Recent:  recent,
		States:  states,
		Trader:  trader,
		Symbols: symbols,
	})
	met := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.SetSymbols(symbols)
	srv := metrics.NewServer(cfg.MetricsAddr, health, hub.ServeWS, apiMux)

	return &Service{
		cfg:       cfg,
		symbols:   symbols,
		source:    source,
		bootstrap: bootstrap,
		engine:    signal.NewEngine(cfg.StaleAfter),
		states:    states,
		rules:     rules,
		router:    rtr,
		journal:   jnl,
		publisher: publisher,
		hub:       hub,
		recent:    recent,
		met:       met,
		health:    health,
		srv:       srv,
	}, nil
}

// Run bootstraps history for each symbol, then evaluates all symbols
// every LoopInterval until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.startedAt = time.Now()

	active := s.warmup(ctx)
	if len(active) == 0 {
		return errors.New("no symbols survived bootstrap")
	}
	s.symbols = active
	if s.health != nil {
		s.health.SetSymbols(active)
	}

	if s.srv != nil {
		s.srv.Start()
	}
	if s.health != nil {
		s.startLiveness(ctx)
	}

	log.Printf("[engine] started: %d symbol(s), %s timeframe, %s interval",
		len(s.symbols), s.cfg.Timeframe, s.cfg.LoopInterval)

	ticker := time.NewTicker(s.cfg.LoopInterval)
	defer ticker.Stop()

	for {
		passStart := time.Now()
		for _, symbol := range s.symbols {
			if ctx.Err() != nil {
				break
			}
			s.processSymbol(ctx, symbol)
		}
		log.Printf("[engine] pass complete in %s, uptime %s",
			time.Since(passStart).Round(time.Millisecond),
			time.Since(s.startedAt).Round(time.Second))

		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// warmup primes the bootstrap cache. Symbols that cannot be bootstrapped
// are dropped from the run.
func (s *Service) warmup(ctx context.Context) []string {
	active := make([]string, 0, len(s.symbols))
	for _, symbol := range s.symbols {
		candles, err := s.bootstrap.LoadOrFetch(ctx, symbol, s.cfg.Timeframe, s.cfg.FetchLimit)
		if err != nil {
			log.Printf("[engine] dropping %s: bootstrap failed: %v", symbol, err)
			continue
		}
		log.Printf("[engine] %s bootstrapped with %d candles", symbol, len(candles))
		active = append(active, symbol)
	}
	return active
}

// processSymbol runs one evaluation cycle. Ordering is deliberate:
// fetch, compute, load previous state, persist new state, then evaluate
// rules against current + previous, then dispatch. Persist-before-decide
// means a crash mid-dispatch never replays with stale flags.
func (s *Service) processSymbol(ctx context.Context, symbol string) {
	cycleStart := time.Now()

	candles, err := s.source.Fetch(ctx, symbol, s.cfg.Timeframe, s.cfg.FetchLimit)
	if err != nil {
		log.Printf("[engine] %s: fetch failed: %v", symbol, err)
		if s.met != nil {
			s.met.FetchFailures.WithLabelValues(symbol).Inc()
		}
		if s.health != nil {
			s.health.SetFeedOK(false)
		}
		return
	}
	if s.health != nil {
		s.health.SetFeedOK(true)
	}

	res := s.engine.Evaluate(symbol, candles, time.Now().UTC())
	if res == nil {
		if s.met != nil {
			s.met.StaleSkips.WithLabelValues(symbol).Inc()
		}
		return
	}

	prev := s.states.Load(symbol)
	saveStart := time.Now()
	if err := s.states.Save(symbol, state.FromResult(res)); err != nil {
		log.Printf("[engine] %s: state save failed: %v", symbol, err)
	} else if s.met != nil {
		s.met.StatePersistDur.Observe(time.Since(saveStart).Seconds())
	}

	if res.Flag != prev.LastSignalFlag {
		log.Printf("[engine] %s signals changed: score %d flag %q (was %q)",
			symbol, res.Score, res.Flag, prev.LastSignalFlag)
	}

	rctx := buildRuleContext(res, prev)
	action := s.rules.Decide(rctx)

	s.publish(ctx, res)

	if action != "" {
		event := model.ActionEvent{
			Timestamp: res.Timestamp,
			Symbol:    symbol,
			Score:     res.Score,
			Signals:   res.Signals,
			Action:    action,
			Price:     res.Price,
		}
		dispatched, failed := s.router.Dispatch(ctx, event)
		log.Printf("[engine] %s: %s dispatched to %d handler(s), %d failed",
			symbol, action, dispatched, failed)
		if s.recent != nil {
			s.recent.Push(event)
		}
		if s.met != nil {
			s.met.ActionsTotal.WithLabelValues(symbol, string(action)).Inc()
			s.met.HandlerErrors.Add(float64(failed))
		}
	}

	if s.met != nil {
		s.met.CyclesTotal.Inc()
		s.met.CycleDur.Observe(time.Since(cycleStart).Seconds())
		s.met.CompositeScore.WithLabelValues(symbol).Set(float64(res.Score))
	}
	if s.health != nil {
		s.health.SetLastCycleTime(time.Now())
	}
}

// buildRuleContext pairs the fresh vector with the previous cycle's
// persisted flags.
func buildRuleContext(res *signal.Result, prev state.EngineState) *rule.Context {
	rctx := &rule.Context{
		Score:         res.Score,
		Histogram:     res.Histogram,
		PrevHistogram: res.HistogramPrev,
	}
	for i := range rctx.Layers {
		if i < len(res.Flags) {
			rctx.Layers[i] = res.Flags[i]
		}
		if i < len(prev.LastLayerFlags) {
			rctx.PrevLayers[i] = prev.LastLayerFlags[i]
		}
	}
	return rctx
}

// publish fans the cycle snapshot out to Redis and WebSocket clients.
func (s *Service) publish(ctx context.Context, res *signal.Result) {
	snap := redisstore.Snapshot{
		Timestamp: res.Timestamp,
		Symbol:    res.Symbol,
		Score:     res.Score,
		Signals:   res.Signals,
		Flag:      string(res.Flag),
	}

	if s.publisher != nil {
		start := time.Now()
		if err := s.publisher.PublishSnapshot(ctx, snap); err != nil {
			log.Printf("[engine] %s: redis publish failed: %v", res.Symbol, err)
		} else if s.met != nil {
			s.met.RedisPublishDur.Observe(time.Since(start).Seconds())
		}
	}

	if s.hub != nil {
		if data, err := json.Marshal(snap); err == nil {
			s.hub.Broadcast(res.Symbol, data)
		}
		if s.met != nil {
			s.met.WSClients.Set(float64(s.hub.ClientCount()))
		}
	}
}

func (s *Service) startLiveness(ctx context.Context) {
	var rdb *goredis.Client
	if s.publisher != nil {
		rdb = s.publisher.Client()
	}
	var db *sql.DB
	if s.journal != nil {
		db = s.journal.DB()
	}
	s.health.StartLivenessChecker(ctx, rdb, db, 30*time.Second)
}

func (s *Service) shutdown() {
	log.Printf("[engine] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.srv != nil {
		s.srv.Stop(shutdownCtx)
	}
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.journal != nil {
		s.journal.Close()
	}
}
