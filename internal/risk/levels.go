package risk

import (
	"context"
	"fmt"
)

// Config holds the sizing and protective-level parameters.
type Config struct {
	StopLossPercent     float64 // Distance below entry for the stop, e.g. 0.05
	TakeProfitPercent   float64 // Distance above entry for the target, e.g. 0.10
	PositionSizePercent float64 // Fraction of equity committed per order, e.g. 0.1
}

// Manager computes protective price levels and position sizes for orders
// placed against the engine.
type Manager struct {
	config Config
}

// NewManager creates a manager after validating the configuration.
func NewManager(config Config) (*Manager, error) {
	if config.StopLossPercent <= 0 || config.StopLossPercent >= 1 {
		return nil, fmt.Errorf("StopLossPercent must be between 0 and 1")
	}
	if config.TakeProfitPercent <= 0 {
		return nil, fmt.Errorf("TakeProfitPercent must be positive")
	}
	if config.PositionSizePercent <= 0 || config.PositionSizePercent > 1 {
		return nil, fmt.Errorf("PositionSizePercent must be between 0 (exclusive) and 1")
	}
	return &Manager{config: config}, nil
}

// GetPositionSize returns the quantity to buy so that the order commits the
// configured fraction of current equity.
func (m *Manager) GetPositionSize(ctx context.Context, equity, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return equity * m.config.PositionSizePercent / price
}

// GetStopLoss returns the stop-loss price level for a long entry.
func (m *Manager) GetStopLoss(ctx context.Context, entryPrice float64) float64 {
	return entryPrice * (1 - m.config.StopLossPercent)
}

// GetTakeProfit returns the take-profit price level for a long entry.
func (m *Manager) GetTakeProfit(ctx context.Context, entryPrice float64) float64 {
	return entryPrice * (1 + m.config.TakeProfitPercent)
}
