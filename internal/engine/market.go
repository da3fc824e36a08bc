package engine

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"paperTradeBot/internal/domain"
	"paperTradeBot/internal/ports"
)

const (
	// priceFloor keeps the random walk from producing zero or negative prices.
	priceFloor = 0.0001
)

// marketModel owns the simulated price state: current price and a bounded
// (timestamp, price) history per instrument. It is not safe for concurrent
// use on its own; the Engine serializes all access behind its mutex.
type marketModel struct {
	prices  map[string]float64
	history map[string][]domain.PricePoint
	limit   int

	rng        *rand.Rand
	volatility float64
	spikeProb  float64
	spikeScale float64
}

func newMarketModel(volatility, spikeProb, spikeScale float64, historyLimit int, seed int64) *marketModel {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &marketModel{
		prices:     make(map[string]float64),
		history:    make(map[string][]domain.PricePoint),
		limit:      historyLimit,
		rng:        rand.New(rand.NewSource(seed)),
		volatility: volatility,
		spikeProb:  spikeProb,
		spikeScale: spikeScale,
	}
}

// price returns the current simulated price for a symbol.
func (m *marketModel) price(symbol string) (float64, error) {
	p, ok := m.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ports.ErrSymbolNotFound, symbol)
	}
	return p, nil
}

// add inserts a new instrument or overwrites the current price of an
// existing one, appending the price to its history either way.
func (m *marketModel) add(symbol string, price float64, now time.Time) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return fmt.Errorf("%w: price for %s must be finite", ports.ErrInvalidOrder, symbol)
	}
	m.prices[symbol] = price
	m.appendHistory(symbol, price, now)
	return nil
}

// advance applies one random-walk step to every instrument. Each price moves
// by a percentage drawn from a normal distribution at the baseline
// volatility; with a small probability an extra larger-variance shock is
// added to simulate spikes. Prices are clamped to a small positive floor.
func (m *marketModel) advance(now time.Time) {
	for symbol, price := range m.prices {
		pctChange := m.rng.NormFloat64() * m.volatility
		if m.rng.Float64() < m.spikeProb {
			pctChange += m.rng.NormFloat64() * m.spikeScale
		}

		newPrice := math.Max(priceFloor, price*(1+pctChange))
		m.prices[symbol] = newPrice
		m.appendHistory(symbol, newPrice, now)
	}
}

func (m *marketModel) appendHistory(symbol string, price float64, now time.Time) {
	h := append(m.history[symbol], domain.PricePoint{Time: now, Price: price})
	// Keep only the most recent limit entries
	if len(h) > m.limit {
		h = h[len(h)-m.limit:]
	}
	m.history[symbol] = h
}

// symbols returns all known instrument symbols in no particular order.
func (m *marketModel) symbols() []string {
	out := make([]string, 0, len(m.prices))
	for s := range m.prices {
		out = append(out, s)
	}
	return out
}

// historyFor returns a copy of the bounded price history for a symbol.
func (m *marketModel) historyFor(symbol string) ([]domain.PricePoint, error) {
	h, ok := m.history[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrSymbolNotFound, symbol)
	}
	out := make([]domain.PricePoint, len(h))
	copy(out, h)
	return out, nil
}
