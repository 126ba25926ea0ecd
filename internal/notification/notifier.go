// Package notification delivers triggered-action alerts to external
// channels (Telegram, generic webhooks). Delivery is fire-and-forget
// from the pipeline's point of view: a failed send is the caller's to
// log, never to propagate.
package notification

import (
	"context"
	"fmt"
	"log"
	"strings"

	"scalpflow/internal/macd"
	"scalpflow/internal/model"
)

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Notify delivers an action event. Returns error if delivery fails.
	Notify(ctx context.Context, event model.ActionEvent) error
}

// FormatEvent renders an action event as the multi-line text shared by
// the chat backends: action header, score, timestamp, and the per-layer
// flag breakdown in fixed layer order.
func FormatEvent(event model.ActionEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s signal triggered\n", event.Action)
	fmt.Fprintf(&b, "%s | MACD score: %d\n", event.Symbol, event.Score)
	fmt.Fprintf(&b, "%s\n", event.Timestamp.UTC().Format("2006-01-02T15:04:05Z"))
	for _, cfg := range macd.Layers {
		fmt.Fprintf(&b, "%s: %+d\n", cfg.Label, event.Signals[cfg.Label])
	}
	return b.String()
}

// LogNotifier logs events instead of delivering them (useful when no
// chat backend is configured).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Notify(ctx context.Context, event model.ActionEvent) error {
	log.Printf("[notify] %s %s score=%d price=%.6f", event.Action, event.Symbol, event.Score, event.Price)
	return nil
}
