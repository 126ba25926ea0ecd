package router

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scalpflow/internal/model"
)

// fakeHandler records invocations and optionally fails.
type fakeHandler struct {
	name  string
	fail  bool
	calls []model.ActionEvent
	order *[]string
}

func (f *fakeHandler) Name() string { return f.name }

func (f *fakeHandler) Handle(ctx context.Context, event model.ActionEvent) error {
	f.calls = append(f.calls, event)
	if f.order != nil {
		*f.order = append(*f.order, f.name)
	}
	if f.fail {
		return errors.New("boom")
	}
	return nil
}

func buyEvent() model.ActionEvent {
	return model.ActionEvent{
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Symbol:    "BTC/USDT",
		Score:     7,
		Signals:   map[string]int{"L1": 1, "L2": 1, "L3": 1, "L4": 1, "L5": 1, "L6": 1, "L7": 1},
		Action:    model.ActionBuy,
		Price:     50000,
	}
}

func TestRouter_DispatchInOrder(t *testing.T) {
	var order []string
	a := &fakeHandler{name: "a", order: &order}
	b := &fakeHandler{name: "b", order: &order}
	c := &fakeHandler{name: "c", order: &order}

	r := New(a, b, c)
	r.Configure(map[string][]string{"BUY": {"c", "a", "b"}})

	dispatched, failed := r.Dispatch(context.Background(), buyEvent())
	if dispatched != 3 || failed != 0 {
		t.Fatalf("dispatched=%d failed=%d", dispatched, failed)
	}
	want := []string{"c", "a", "b"}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestRouter_EachHandlerInvokedExactlyOnce(t *testing.T) {
	a := &fakeHandler{name: "a"}
	b := &fakeHandler{name: "b"}
	r := New(a, b)
	r.Configure(map[string][]string{"BUY": {"a", "b"}})

	r.Dispatch(context.Background(), buyEvent())
	if len(a.calls) != 1 || len(b.calls) != 1 {
		t.Errorf("expected exactly one call each, got %d/%d", len(a.calls), len(b.calls))
	}
}

func TestRouter_FailureDoesNotStopChain(t *testing.T) {
	a := &fakeHandler{name: "a", fail: true}
	b := &fakeHandler{name: "b"}
	r := New(a, b)
	r.Configure(map[string][]string{"SELL": {"a", "b"}})

	event := buyEvent()
	event.Action = model.ActionSell
	dispatched, failed := r.Dispatch(context.Background(), event)
	if dispatched != 2 || failed != 1 {
		t.Errorf("dispatched=%d failed=%d", dispatched, failed)
	}
	if len(b.calls) != 1 {
		t.Error("second handler should still run after first fails")
	}
}

func TestRouter_UnknownHandlerSkipped(t *testing.T) {
	a := &fakeHandler{name: "a"}
	r := New(a)
	r.Configure(map[string][]string{"BUY": {"nonexistent", "a"}})

	if got := len(r.Handlers(model.ActionBuy)); got != 1 {
		t.Fatalf("expected 1 resolved handler, got %d", got)
	}
	dispatched, _ := r.Dispatch(context.Background(), buyEvent())
	if dispatched != 1 || len(a.calls) != 1 {
		t.Errorf("known handler should still dispatch, got %d calls", len(a.calls))
	}
}

func TestRouter_UnroutedActionIsNoop(t *testing.T) {
	r := New(&fakeHandler{name: "a"})
	r.Configure(map[string][]string{"BUY": {"a"}})

	event := buyEvent()
	event.Action = model.ActionSell
	if dispatched, _ := r.Dispatch(context.Background(), event); dispatched != 0 {
		t.Errorf("expected no dispatch for unrouted action, got %d", dispatched)
	}
}

func TestRouter_LoadRoutesFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.yaml")
	content := `BUY:
  - print_to_console
  - mystery_handler
SELL:
  - print_to_console
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	r := New(ConsoleHandler{})
	if err := r.LoadRoutes(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := len(r.Handlers(model.ActionBuy)); got != 1 {
		t.Errorf("BUY: expected 1 handler (unknown skipped), got %d", got)
	}
	if got := len(r.Handlers(model.ActionSell)); got != 1 {
		t.Errorf("SELL: expected 1 handler, got %d", got)
	}
}

func TestCSVHandler_AppendsRows(t *testing.T) {
	dir := t.TempDir()
	h, err := NewCSVHandler(dir)
	if err != nil {
		t.Fatal(err)
	}

	event := buyEvent()
	if err := h.Handle(context.Background(), event); err != nil {
		t.Fatal(err)
	}
	event.Action = model.ActionSell
	event.Score = -3
	if err := h.Handle(context.Background(), event); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(dir, "BTCUSDT_actions.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "timestamp" || rows[1][3] != "BUY" || rows[2][3] != "SELL" {
		t.Errorf("unexpected rows: %v", rows)
	}
}
