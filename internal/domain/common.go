package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// IsValid reports whether the side is one of the two known values.
func (s OrderSide) IsValid() bool {
	return s == Buy || s == Sell
}

// ConditionalStatus represents the lifecycle state of a conditional order.
// An order starts open and transitions exactly once, to triggered or cancelled.
type ConditionalStatus string

const (
	ConditionalOpen      ConditionalStatus = "open"
	ConditionalTriggered ConditionalStatus = "triggered"
	ConditionalCancelled ConditionalStatus = "cancelled"
)
