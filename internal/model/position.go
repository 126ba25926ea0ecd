package model

// PositionState is the paper-trading position state for a symbol.
type PositionState string

const (
	PositionFlat PositionState = "flat"
	PositionLong PositionState = "long"
)

// Position represents a tracked paper-trading position.
// EntryPrice is meaningful only while State is long.
type Position struct {
	State       PositionState `json:"state"`
	EntryPrice  float64       `json:"entry_price"`
	RealizedPnL float64       `json:"realized_pnl"`
	LastAction  Action        `json:"last_action,omitempty"`
}
