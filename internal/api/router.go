// Package api exposes read-only HTTP endpoints over the engine's
// journal, state store and paper positions.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"scalpflow/internal/journal"
	"scalpflow/internal/model"
	"scalpflow/internal/paper"
	"scalpflow/internal/ringbuf"
	"scalpflow/internal/state"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Deps are the engine components the API reads from. Journal may be nil
// when the SQLite journal is disabled.
type Deps struct {
	Journal *journal.Journal
	Recent  *ringbuf.Ring
	States  *state.Store
	Trader  *paper.Trader
	Symbols []string
}

// NewRouter sets up the read-only HTTP routes.
func NewRouter(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// In-memory recent actions, newest first.
	mux.HandleFunc("/api/v1/actions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, d.Recent.Snapshot())
	})

	// Durable action history from the journal.
	mux.HandleFunc("/api/v1/actions/history", func(w http.ResponseWriter, r *http.Request) {
		if d.Journal == nil {
			http.Error(w, `{"error":"journal disabled"}`, http.StatusServiceUnavailable)
			return
		}
		limit := defaultHistoryLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
				return
			}
			if n > maxHistoryLimit {
				n = maxHistoryLimit
			}
			limit = n
		}
		records, err := d.Journal.Recent(limit)
		if err != nil {
			http.Error(w, `{"error":"journal query failed"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, records)
	})

	// Persisted signal state for one symbol.
	mux.HandleFunc("/api/v1/state", func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			http.Error(w, `{"error":"symbol required"}`, http.StatusBadRequest)
			return
		}
		writeJSON(w, d.States.Load(symbol))
	})

	// Paper positions for all tracked symbols.
	mux.HandleFunc("/api/v1/positions", func(w http.ResponseWriter, r *http.Request) {
		positions := make(map[string]model.Position, len(d.Symbols))
		for _, symbol := range d.Symbols {
			positions[symbol] = d.Trader.Position(symbol)
		}
		writeJSON(w, positions)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
