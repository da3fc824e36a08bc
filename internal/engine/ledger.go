package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"paperTradeBot/internal/domain"
	"paperTradeBot/internal/ports"
)

// epsilon absorbs floating-point error in quantity and cash comparisons.
// A position whose quantity falls to epsilon or below is removed.
const epsilon = 1e-9

// ledger is the authoritative cash/position/trade bookkeeper. Like the
// market model it carries no lock of its own; the Engine serializes access.
type ledger struct {
	cash      float64
	realized  float64
	positions map[string]*domain.Position
	trades    []domain.Trade
}

func newLedger(startingCash float64) *ledger {
	return &ledger{
		cash:      startingCash,
		positions: make(map[string]*domain.Position),
	}
}

// validate performs the pure, non-mutating order pre-check. It never returns
// an error; failures are reported as an (ok, reason) pair.
func (l *ledger) validate(m *marketModel, symbol string, side domain.OrderSide, quantity float64) (bool, string) {
	if !side.IsValid() {
		return false, fmt.Sprintf("side must be %s or %s", domain.Buy, domain.Sell)
	}
	if quantity <= 0 {
		return false, "quantity must be positive"
	}
	if _, ok := m.prices[symbol]; !ok {
		return false, fmt.Sprintf("unknown symbol: %s", symbol)
	}
	if side == domain.Sell {
		var holding float64
		if pos, ok := l.positions[symbol]; ok {
			holding = pos.Quantity
		}
		if quantity > holding+epsilon {
			return false, fmt.Sprintf("insufficient holdings to sell: have %g, tried to sell %g", holding, quantity)
		}
	}
	return true, ""
}

// buy executes a market buy at the given price: debits cash, re-averages the
// position's cost basis and appends a buy trade record. All-or-nothing: on
// error no state changes.
func (l *ledger) buy(symbol string, quantity, price float64, now time.Time) (domain.Trade, error) {
	cost := price * quantity
	if cost > l.cash+epsilon {
		return domain.Trade{}, fmt.Errorf("%w: need %.2f, have %.2f", ports.ErrInsufficientFunds, cost, l.cash)
	}

	if pos, ok := l.positions[symbol]; ok {
		newQty := pos.Quantity + quantity
		pos.AvgPrice = (pos.AvgPrice*pos.Quantity + price*quantity) / newQty
		pos.Quantity = newQty
	} else {
		l.positions[symbol] = &domain.Position{Symbol: symbol, Quantity: quantity, AvgPrice: price}
	}
	l.cash -= cost

	trade := domain.Trade{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Side:       domain.Buy,
		Quantity:   quantity,
		Price:      price,
		ExecutedAt: now,
	}
	l.trades = append(l.trades, trade)
	return trade, nil
}

// sell executes a market sell at the given price: credits cash, books the
// realized P/L against the position's average cost and appends a sell trade
// record. The average cost basis is never altered by a sell; the position is
// removed once its quantity reaches (approximately) zero.
func (l *ledger) sell(symbol string, quantity, price float64, triggeredBy string, now time.Time) (domain.Trade, error) {
	pos, ok := l.positions[symbol]
	if !ok || pos.Quantity < quantity-epsilon {
		var holding float64
		if ok {
			holding = pos.Quantity
		}
		return domain.Trade{}, fmt.Errorf("%w: have %g, tried to sell %g", ports.ErrInsufficientHoldings, holding, quantity)
	}

	realized := (price - pos.AvgPrice) * quantity
	pos.Quantity -= quantity
	if pos.Quantity <= epsilon {
		delete(l.positions, symbol)
	}
	l.cash += price * quantity
	l.realized += realized

	trade := domain.Trade{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		Side:        domain.Sell,
		Quantity:    quantity,
		Price:       price,
		ExecutedAt:  now,
		RealizedPnL: realized,
		TriggeredBy: triggeredBy,
	}
	l.trades = append(l.trades, trade)
	return trade, nil
}

// holding returns the currently held quantity for a symbol (zero if none).
func (l *ledger) holding(symbol string) float64 {
	if pos, ok := l.positions[symbol]; ok {
		return pos.Quantity
	}
	return 0
}

// unrealized sums (current price - average cost) * quantity over all open
// positions. Symbols missing from the market contribute their negative cost
// basis, mirroring a price of zero.
func (l *ledger) unrealized(m *marketModel) float64 {
	var total float64
	for symbol, pos := range l.positions {
		total += (m.prices[symbol] - pos.AvgPrice) * pos.Quantity
	}
	return total
}

// marketValue sums current price * quantity over all open positions.
func (l *ledger) marketValue(m *marketModel) float64 {
	var total float64
	for symbol, pos := range l.positions {
		total += m.prices[symbol] * pos.Quantity
	}
	return total
}

// snapshot builds a read-only composite view of the portfolio.
func (l *ledger) snapshot(m *marketModel) domain.PortfolioSnapshot {
	snap := domain.PortfolioSnapshot{
		Cash:        l.cash,
		Positions:   make([]domain.PositionView, 0, len(l.positions)),
		RealizedPnL: l.realized,
	}
	for symbol, pos := range l.positions {
		price := m.prices[symbol]
		view := domain.PositionView{
			Symbol:        symbol,
			Quantity:      pos.Quantity,
			AvgPrice:      pos.AvgPrice,
			MarketPrice:   price,
			MarketValue:   price * pos.Quantity,
			UnrealizedPnL: (price - pos.AvgPrice) * pos.Quantity,
		}
		snap.Positions = append(snap.Positions, view)
		snap.UnrealizedPnL += view.UnrealizedPnL
		snap.Equity += view.MarketValue
	}
	snap.Equity += snap.Cash
	snap.TotalPnL = snap.RealizedPnL + snap.UnrealizedPnL
	return snap
}

// tradeHistory returns a copy of the append-only trade log.
func (l *ledger) tradeHistory() []domain.Trade {
	out := make([]domain.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}
