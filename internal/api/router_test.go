package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"scalpflow/internal/journal"
	"scalpflow/internal/model"
	"scalpflow/internal/paper"
	"scalpflow/internal/ringbuf"
	"scalpflow/internal/state"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	states, err := state.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("state store: %v", err)
	}
	trader, err := paper.NewTrader("")
	if err != nil {
		t.Fatalf("trader: %v", err)
	}
	jnl, err := journal.New(filepath.Join(t.TempDir(), "actions.db"))
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	t.Cleanup(func() { jnl.Close() })

	return Deps{
		Journal: jnl,
		Recent:  ringbuf.New(16),
		States:  states,
		Trader:  trader,
		Symbols: []string{"BTCUSDT"},
	}
}

func get(t *testing.T, mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestRecentActions(t *testing.T) {
	deps := testDeps(t)
	deps.Recent.Push(model.ActionEvent{Symbol: "BTCUSDT", Score: 5, Action: model.ActionBuy})
	mux := NewRouter(deps)

	rec := get(t, mux, "/api/v1/actions")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var events []model.ActionEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 1 || events[0].Action != model.ActionBuy {
		t.Errorf("events = %+v", events)
	}
}

func TestActionHistory(t *testing.T) {
	deps := testDeps(t)
	err := deps.Journal.Record(model.ActionEvent{
		Timestamp: time.Now().UTC(),
		Symbol:    "BTCUSDT",
		Score:     4,
		Action:    model.ActionBuy,
		Price:     50000,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	mux := NewRouter(deps)

	rec := get(t, mux, "/api/v1/actions/history?limit=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	var records []journal.ActionRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
}

func TestActionHistoryBadLimit(t *testing.T) {
	mux := NewRouter(testDeps(t))
	if rec := get(t, mux, "/api/v1/actions/history?limit=nope"); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestActionHistoryJournalDisabled(t *testing.T) {
	deps := testDeps(t)
	deps.Journal = nil
	mux := NewRouter(deps)
	if rec := get(t, mux, "/api/v1/actions/history"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestStateRequiresSymbol(t *testing.T) {
	mux := NewRouter(testDeps(t))
	if rec := get(t, mux, "/api/v1/state"); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if rec := get(t, mux, "/api/v1/state?symbol=BTCUSDT"); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestPositions(t *testing.T) {
	deps := testDeps(t)
	deps.Trader.ProcessSignal("BTCUSDT", model.ActionBuy, 50000, time.Now())
	mux := NewRouter(deps)

	rec := get(t, mux, "/api/v1/positions")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var positions map[string]model.Position
	if err := json.Unmarshal(rec.Body.Bytes(), &positions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	pos, ok := positions["BTCUSDT"]
	if !ok || pos.State != model.PositionLong || pos.EntryPrice != 50000 {
		t.Errorf("positions = %+v", positions)
	}
}
