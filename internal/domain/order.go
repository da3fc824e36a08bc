package domain

import "time"

// ConditionalOrder is a pending protective sell attached to a long position.
// It triggers when the price falls to the stop-loss or rises to the
// take-profit level, whichever is set. At least one of the two levels is
// always present.
type ConditionalOrder struct {
	ID         string            // Unique identifier
	Symbol     string            // Instrument symbol
	Side       OrderSide         // Always SELL (closing side of the protected long)
	Quantity   float64           // Quantity to close when triggered
	StopLoss   *float64          // Trigger when price <= this level (nil if unset)
	TakeProfit *float64          // Trigger when price >= this level (nil if unset)
	Status     ConditionalStatus // open, triggered or cancelled
	CreatedAt  time.Time         // Creation timestamp (UTC)
	ResolvedAt time.Time         // When the order left the open state (zero while open)
}

// IsOpen reports whether the order is still awaiting evaluation.
func (o *ConditionalOrder) IsOpen() bool {
	return o.Status == ConditionalOpen
}
