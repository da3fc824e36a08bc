package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"paperTradeBot/internal/domain"
	"paperTradeBot/internal/ports"
)

// orderBook holds pending protective sell orders. Each order moves exactly
// once from open to triggered (executed) or cancelled (position gone); a
// terminal order is never re-evaluated, which makes evaluation idempotent.
type orderBook struct {
	orders []*domain.ConditionalOrder
}

func newOrderBook() *orderBook {
	return &orderBook{}
}

// add creates an open protective sell order and returns its id.
func (b *orderBook) add(symbol string, quantity float64, stopLoss, takeProfit *float64, now time.Time) string {
	order := &domain.ConditionalOrder{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Side:       domain.Sell,
		Quantity:   quantity,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Status:     domain.ConditionalOpen,
		CreatedAt:  now,
	}
	b.orders = append(b.orders, order)
	return order.ID
}

// listOpen returns copies of all orders still in the open state.
func (b *orderBook) listOpen() []domain.ConditionalOrder {
	out := make([]domain.ConditionalOrder, 0)
	for _, o := range b.orders {
		if o.IsOpen() {
			out = append(out, *o)
		}
	}
	return out
}

// evaluate checks every open order against the current market price and
// executes those whose stop-loss or take-profit level is met. A failure in
// one order is logged and never prevents evaluation of the others. Executed
// sell trades are returned so the caller can hand them to recorders.
func (b *orderBook) evaluate(ctx context.Context, m *marketModel, l *ledger, log ports.Logger, now time.Time) []domain.Trade {
	var executed []domain.Trade
	for _, order := range b.orders {
		if !order.IsOpen() {
			continue
		}
		price, ok := m.prices[order.Symbol]
		if !ok {
			continue
		}

		triggered := false
		if order.StopLoss != nil && price <= *order.StopLoss {
			triggered = true
		}
		if order.TakeProfit != nil && price >= *order.TakeProfit {
			triggered = true
		}
		if !triggered {
			continue
		}

		holding := l.holding(order.Symbol)
		if holding <= 0 {
			// The protected position was closed by other activity; there is
			// nothing left to sell.
			order.Status = domain.ConditionalCancelled
			order.ResolvedAt = now
			log.Warn(ctx, "Conditional order cancelled, position no longer exists", map[string]interface{}{
				"orderID": order.ID,
				"symbol":  order.Symbol,
			})
			continue
		}

		// Clamp to current holdings. If holdings were reduced between order
		// creation and trigger, the remainder is not requeued.
		execQty := order.Quantity
		if holding < execQty {
			execQty = holding
		}

		trade, err := l.sell(order.Symbol, execQty, price, order.ID, now)
		if err != nil {
			// Isolate the failure to this order; it stays open for the next pass.
			log.Error(ctx, err, "Conditional order execution failed", map[string]interface{}{
				"orderID":  order.ID,
				"symbol":   order.Symbol,
				"quantity": execQty,
			})
			continue
		}
		order.Status = domain.ConditionalTriggered
		order.ResolvedAt = now
		executed = append(executed, trade)
		log.Info(ctx, "Conditional order triggered", map[string]interface{}{
			"orderID":  order.ID,
			"symbol":   order.Symbol,
			"quantity": execQty,
			"price":    price,
			"realized": trade.RealizedPnL,
		})
	}
	return executed
}
