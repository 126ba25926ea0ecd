package router

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"scalpflow/internal/journal"
	"scalpflow/internal/model"
	"scalpflow/internal/notification"
	"scalpflow/internal/paper"
	"scalpflow/internal/state"
)

// Built-in handler names referenced by route files.
const (
	HandlerConsole  = "print_to_console"
	HandlerCSV      = "save_to_csv"
	HandlerTelegram = "notify_telegram"
	HandlerWebhook  = "notify_webhook"
	HandlerJournal  = "record_journal"
	HandlerPaper    = "paper_trade"
)

// ConsoleHandler prints a one-line action summary to the process log.
type ConsoleHandler struct{}

func (ConsoleHandler) Name() string { return HandlerConsole }

func (ConsoleHandler) Handle(ctx context.Context, event model.ActionEvent) error {
	log.Printf("[action] %s %s -> %s score=%d price=%.6f",
		event.Timestamp.UTC().Format(time.RFC3339), event.Symbol, event.Action, event.Score, event.Price)
	return nil
}

// CSVHandler appends actions to a per-symbol CSV log.
type CSVHandler struct {
	dir string
}

// NewCSVHandler creates the log directory if needed.
func NewCSVHandler(dir string) (*CSVHandler, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("csv handler: mkdir %s: %w", dir, err)
	}
	return &CSVHandler{dir: dir}, nil
}

func (h *CSVHandler) Name() string { return HandlerCSV }

func (h *CSVHandler) Handle(ctx context.Context, event model.ActionEvent) error {
	path := filepath.Join(h.dir, state.NormalizeSymbol(event.Symbol)+"_actions.csv")
	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("csv handler: open %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		w.Write([]string{"timestamp", "symbol", "score", "action"})
	}
	w.Write([]string{
		event.Timestamp.UTC().Format(time.RFC3339),
		event.Symbol,
		strconv.Itoa(event.Score),
		string(event.Action),
	})
	w.Flush()
	return w.Error()
}

// NotifyHandler adapts a notification backend into a named handler.
type NotifyHandler struct {
	name     string
	notifier notification.Notifier
}

// NewNotifyHandler wraps a notifier under the given route name.
func NewNotifyHandler(name string, n notification.Notifier) *NotifyHandler {
	return &NotifyHandler{name: name, notifier: n}
}

func (h *NotifyHandler) Name() string { return h.name }

func (h *NotifyHandler) Handle(ctx context.Context, event model.ActionEvent) error {
	return h.notifier.Notify(ctx, event)
}

// JournalHandler records actions in the SQLite journal.
type JournalHandler struct {
	journal *journal.Journal
}

// NewJournalHandler wraps an action journal.
func NewJournalHandler(j *journal.Journal) *JournalHandler {
	return &JournalHandler{journal: j}
}

func (h *JournalHandler) Name() string { return HandlerJournal }

func (h *JournalHandler) Handle(ctx context.Context, event model.ActionEvent) error {
	return h.journal.Record(event)
}

// PaperHandler routes actions into the paper-trading position tracker.
type PaperHandler struct {
	trader *paper.Trader
}

// NewPaperHandler wraps a paper trader.
func NewPaperHandler(t *paper.Trader) *PaperHandler {
	return &PaperHandler{trader: t}
}

func (h *PaperHandler) Name() string { return HandlerPaper }

func (h *PaperHandler) Handle(ctx context.Context, event model.ActionEvent) error {
	h.trader.ProcessSignal(event.Symbol, event.Action, event.Price, event.Timestamp)
	return nil
}
