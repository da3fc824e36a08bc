package domain

// Position represents a held quantity of an instrument together with its
// weighted average cost basis. A position with zero quantity is not kept:
// the ledger removes the entry once holdings fall to (approximately) zero.
type Position struct {
	Symbol   string  // Instrument symbol
	Quantity float64 // Held quantity, always positive while the position exists
	AvgPrice float64 // Quantity-weighted mean of all buy fills still held
}
