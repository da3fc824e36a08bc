package domain

import "time"

// Trade represents a single executed fill. Trades are append-only: once
// recorded they are never mutated or deleted.
type Trade struct {
	ID          string    // Unique identifier for the fill
	Symbol      string    // Instrument symbol (e.g., "AAPL")
	Side        OrderSide // BUY or SELL
	Quantity    float64   // Filled quantity
	Price       float64   // Execution price
	ExecutedAt  time.Time // Execution timestamp (UTC)
	RealizedPnL float64   // Realized profit/loss of this fill (sells only)
	TriggeredBy string    // ID of the conditional order that caused the fill, if any
}
