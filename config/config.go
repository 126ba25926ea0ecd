package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Market data
	Symbols    string // comma-separated, e.g. "BTCUSDT,ETHUSDT"
	Timeframe  string
	FetchLimit int

	// Cycle control
	LoopInterval time.Duration
	StaleAfter   time.Duration

	// Data directories
	StateDir     string
	BootstrapDir string
	ActionsDir   string
	TradesDir    string

	// Decision logic
	RulesFile  string
	RoutesFile string

	// Notification channels
	TelegramToken  string
	TelegramChatID string
	WebhookURL     string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	JournalPath   string
	MetricsAddr   string

	// Logging
	LogFile string // optional file to tee engine logs into
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Symbols:    getEnv("SYMBOLS", "BTCUSDT"),
		Timeframe:  getEnv("TIMEFRAME", "5m"),
		FetchLimit: getEnvInt("FETCH_LIMIT", 1000),

		LoopInterval: getEnvDuration("LOOP_INTERVAL", 60*time.Second),
		StaleAfter:   getEnvDuration("STALE_AFTER", 600*time.Second),

		StateDir:     getEnv("STATE_DIR", "data/state"),
		BootstrapDir: getEnv("BOOTSTRAP_DIR", "data/bootstrap"),
		ActionsDir:   getEnv("ACTIONS_DIR", "data/actions"),
		TradesDir:    getEnv("TRADES_DIR", "data/trades"),

		RulesFile:  getEnv("RULES_FILE", "configs/logic.yaml"),
		RoutesFile: getEnv("ROUTES_FILE", "configs/action_routes.yaml"),

		TelegramToken:  getEnv("TELEGRAM_TOKEN", ""),
		TelegramChatID: getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:     getEnv("WEBHOOK_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		JournalPath:   getEnv("JOURNAL_PATH", "data/actions.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		LogFile: getEnv("LOG_FILE", ""),
	}
}

// ParseSymbols splits the Symbols string into a deduplicated slice.
func (c *Config) ParseSymbols() []string {
	parts := strings.Split(c.Symbols, ",")
	seen := make(map[string]bool, len(parts))
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		symbols = append(symbols, p)
	}
	return symbols
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	// Accept either a Go duration string or plain seconds.
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
	return fallback
}
