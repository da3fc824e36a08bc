package ports

import "errors"

// Standard application-level errors.
// Callers match on these with errors.Is; the engine wraps them with
// additional context (symbol, required vs. available amounts).
var (
	// General Errors
	ErrNotFound           = errors.New("resource not found")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Trading Errors
	ErrSymbolNotFound       = errors.New("unknown instrument symbol")
	ErrInvalidOrder         = errors.New("invalid order")
	ErrInsufficientFunds    = errors.New("insufficient funds for operation")
	ErrInsufficientHoldings = errors.New("insufficient holdings to sell")

	// Database Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
)
