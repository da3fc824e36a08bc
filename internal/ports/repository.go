package ports

import (
	"context"

	"paperTradeBot/internal/domain"
)

// TradeRecorder persists executed fills to durable storage. The engine
// invokes it after state mutation completes; a recorder failure must never
// fail the trade itself.
type TradeRecorder interface {
	RecordTrade(ctx context.Context, trade *domain.Trade) error
}

// SnapshotRecorder persists equity-curve points recorded on each tick.
type SnapshotRecorder interface {
	RecordSnapshot(ctx context.Context, point domain.EquityPoint) error
}

// TradeRepository provides read access to persisted fills.
type TradeRepository interface {
	TradeRecorder
	FindTrades(ctx context.Context) ([]*domain.Trade, error)
	FindTradesBySymbol(ctx context.Context, symbol string) ([]*domain.Trade, error)
}

// SnapshotRepository provides read access to the persisted equity curve.
type SnapshotRepository interface {
	SnapshotRecorder
	FindSnapshots(ctx context.Context) ([]domain.EquityPoint, error)
}
