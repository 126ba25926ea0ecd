package model

import "time"

// Action represents a trading action decided by the rule evaluator.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// ActionEvent carries everything a dispatch handler needs about a
// triggering cycle. Constructed once per trigger, never persisted by
// the core (persistence, if any, is a handler's concern).
type ActionEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Symbol    string         `json:"symbol"`
	Score     int            `json:"score"`
	Signals   map[string]int `json:"signals"` // layer label -> -1/0/+1
	Action    Action         `json:"action"`
	Price     float64        `json:"price"` // last close at trigger time
}
