// Package journal persists triggered actions to SQLite for audit and
// later analysis.
package journal

import (
	"database/sql"
	"encoding/json"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"scalpflow/internal/model"
)

// Journal is an append-mostly SQLite store of dispatched actions.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// DB exposes the underlying handle for liveness probes.
func (j *Journal) DB() *sql.DB { return j.db }

// New opens (or creates) the action journal database.
func New(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS actions (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol      TEXT NOT NULL,
		action      TEXT NOT NULL,
		score       INTEGER NOT NULL,
		price       REAL NOT NULL,
		signals     TEXT NOT NULL,
		triggered_at DATETIME NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_actions_symbol ON actions(symbol);
	CREATE INDEX IF NOT EXISTS idx_actions_triggered_at ON actions(triggered_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[journal] opened action journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// Record persists one dispatched action.
func (j *Journal) Record(event model.ActionEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	signals, _ := json.Marshal(event.Signals)
	_, err := j.db.Exec(
		`INSERT INTO actions (symbol, action, score, price, signals, triggered_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.Symbol,
		string(event.Action),
		event.Score,
		event.Price,
		string(signals),
		event.Timestamp.UTC().Format(time.RFC3339),
	)
	return err
}

// ActionRecord represents a row from the actions table.
type ActionRecord struct {
	ID          int64          `json:"id"`
	Symbol      string         `json:"symbol"`
	Action      string         `json:"action"`
	Score       int            `json:"score"`
	Price       float64        `json:"price"`
	Signals     map[string]int `json:"signals"`
	TriggeredAt string         `json:"triggered_at"`
}

// Recent returns the last N recorded actions, newest first.
func (j *Journal) Recent(limit int) ([]ActionRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, symbol, action, score, price, signals, triggered_at
		 FROM actions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ActionRecord
	for rows.Next() {
		var rec ActionRecord
		var signals string
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.Action, &rec.Score, &rec.Price, &signals, &rec.TriggeredAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(signals), &rec.Signals); err != nil {
			rec.Signals = nil
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
