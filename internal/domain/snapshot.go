package domain

import "time"

// PricePoint is one entry in an instrument's bounded price history.
type PricePoint struct {
	Time  time.Time
	Price float64
}

// EquityPoint is one entry on the portfolio equity curve: cash plus the
// market value of all open positions at a moment in time.
type EquityPoint struct {
	Time   time.Time
	Equity float64
}

// PositionView is a read-only view of one position enriched with current
// market data.
type PositionView struct {
	Symbol        string
	Quantity      float64
	AvgPrice      float64
	MarketPrice   float64
	MarketValue   float64
	UnrealizedPnL float64
}

// PortfolioSnapshot is a consistent read-only view of the whole portfolio.
type PortfolioSnapshot struct {
	Cash          float64
	Positions     []PositionView
	RealizedPnL   float64
	UnrealizedPnL float64
	TotalPnL      float64
	Equity        float64
}

// Dashboard bundles current market prices with a portfolio snapshot.
type Dashboard struct {
	Market    map[string]float64
	Portfolio PortfolioSnapshot
	Timestamp time.Time
}
