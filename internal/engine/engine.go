package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"paperTradeBot/config"
	"paperTradeBot/internal/domain"
	"paperTradeBot/internal/ports"
)

// stopTimeout bounds how long Stop waits for the background loop to finish
// its current tick.
const stopTimeout = 2 * time.Second

// defaultUniverse seeds the simulated market at construction.
var defaultUniverse = map[string]float64{
	"AAPL":   150.00,
	"GOOGL":  2800.00,
	"TSLA":   700.00,
	"BTCUSD": 50000.00,
	"ETHUSD": 3500.00,
}

// OrderRequest describes a market order. StopLoss and TakeProfit, when set
// on a buy, attach a protective conditional sell for the bought quantity.
type OrderRequest struct {
	Symbol     string
	Side       domain.OrderSide
	Quantity   float64
	StopLoss   *float64
	TakeProfit *float64
}

// OrderResult confirms an executed market order. ConditionalOrderID is
// non-empty when a protective order was attached.
type OrderResult struct {
	Trade              domain.Trade
	ConditionalOrderID string
}

// Engine is the simulated trading engine: it owns the market model, the
// cash/position ledger and the conditional order book, and drives the
// simulation tick. All state is guarded by a single mutex so that a tick's
// advance/evaluate/snapshot sequence is observed atomically by callers.
type Engine struct {
	cfg      *config.Config
	logger   ports.Logger
	tradeRec ports.TradeRecorder    // optional, may be nil
	snapRec  ports.SnapshotRecorder // optional, may be nil

	mu     sync.Mutex
	market *marketModel
	ledger *ledger
	book   *orderBook
	equity []domain.EquityPoint

	// Background simulation lifecycle, guarded separately so Stop can wait
	// on the loop without holding the state lock.
	simMu     sync.Mutex
	running   bool
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// New creates an engine seeded with the default instrument universe and
// records the initial equity snapshot.
func New(cfg *config.Config, logger ports.Logger, tradeRec ports.TradeRecorder, snapRec ports.SnapshotRecorder) (*Engine, error) {
	if cfg == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for Engine")
	}
	if cfg.StartingCash <= 0 {
		return nil, fmt.Errorf("%w: StartingCash must be positive", ports.ErrConfigurationError)
	}
	if cfg.Volatility <= 0 {
		return nil, fmt.Errorf("%w: Volatility must be positive", ports.ErrConfigurationError)
	}
	if cfg.HistoryLimit <= 0 {
		return nil, fmt.Errorf("%w: HistoryLimit must be positive", ports.ErrConfigurationError)
	}

	e := &Engine{
		cfg:      cfg,
		logger:   logger,
		tradeRec: tradeRec,
		snapRec:  snapRec,
		market:   newMarketModel(cfg.Volatility, cfg.SpikeProbability, cfg.SpikeScale, cfg.HistoryLimit, cfg.RandomSeed),
		ledger:   newLedger(cfg.StartingCash),
		book:     newOrderBook(),
	}

	now := time.Now().UTC()
	for symbol, price := range defaultUniverse {
		if err := e.market.add(symbol, price, now); err != nil {
			return nil, err
		}
	}
	e.recordEquityLocked(now)

	return e, nil
}

// --- Market access ---

// GetMarketPrice returns the current simulated price for a symbol.
func (e *Engine) GetMarketPrice(symbol string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.market.price(symbol)
}

// AddInstrument adds a new symbol to the simulated market, or overwrites the
// current price of an existing one.
func (e *Engine) AddInstrument(symbol string, price float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.market.add(symbol, price, time.Now().UTC())
}

// ListSymbols returns all known instrument symbols.
func (e *Engine) ListSymbols() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.market.symbols()
}

// PriceHistory returns a copy of the bounded price history for a symbol.
func (e *Engine) PriceHistory(symbol string) ([]domain.PricePoint, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.market.historyFor(symbol)
}

// AdvanceMarket applies one random-walk step to every instrument without
// evaluating conditional orders or recording a snapshot.
func (e *Engine) AdvanceMarket() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.market.advance(time.Now().UTC())
}

// --- Orders & trades ---

// ValidateOrder performs the non-raising order pre-check and reports the
// failure reason, if any.
func (e *Engine) ValidateOrder(symbol string, side domain.OrderSide, quantity float64) (bool, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.validate(e.market, symbol, side, quantity)
}

// PlaceOrder executes a market buy or sell immediately at the current
// simulated price. The price read and the mutation happen under one lock
// acquisition, so a concurrent tick can never make the price stale
// mid-operation. Orders are all-or-nothing: on error no state changes.
func (e *Engine) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	e.mu.Lock()
	result, err := e.placeOrderLocked(req)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	e.logger.Info(ctx, "Order executed", map[string]interface{}{
		"tradeID":  result.Trade.ID,
		"symbol":   result.Trade.Symbol,
		"side":     result.Trade.Side,
		"quantity": result.Trade.Quantity,
		"price":    result.Trade.Price,
	})
	e.recordTrades(ctx, result.Trade)
	return result, nil
}

func (e *Engine) placeOrderLocked(req OrderRequest) (*OrderResult, error) {
	if ok, reason := e.ledger.validate(e.market, req.Symbol, req.Side, req.Quantity); !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrInvalidOrder, reason)
	}

	price, err := e.market.price(req.Symbol)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	switch req.Side {
	case domain.Buy:
		trade, err := e.ledger.buy(req.Symbol, req.Quantity, price, now)
		if err != nil {
			return nil, err
		}
		result := &OrderResult{Trade: trade}
		if req.StopLoss != nil || req.TakeProfit != nil {
			result.ConditionalOrderID = e.book.add(req.Symbol, req.Quantity, req.StopLoss, req.TakeProfit, now)
		}
		return result, nil

	default: // domain.Sell, anything else already rejected by validate
		trade, err := e.ledger.sell(req.Symbol, req.Quantity, price, "", now)
		if err != nil {
			return nil, err
		}
		return &OrderResult{Trade: trade}, nil
	}
}

// EvaluateConditionalOrders runs one evaluation pass over all open
// conditional orders against the latest prices.
func (e *Engine) EvaluateConditionalOrders(ctx context.Context) {
	e.mu.Lock()
	executed := e.book.evaluate(ctx, e.market, e.ledger, e.logger, time.Now().UTC())
	e.mu.Unlock()
	e.recordTrades(ctx, executed...)
}

// OpenConditionalOrders returns copies of all conditional orders still open.
func (e *Engine) OpenConditionalOrders() []domain.ConditionalOrder {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.listOpen()
}

// --- Portfolio & P/L ---

// ProfitLoss returns total profit/loss: realized plus unrealized.
func (e *Engine) ProfitLoss() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.realized + e.ledger.unrealized(e.market)
}

// Portfolio returns a consistent read-only snapshot of cash, positions and
// profit/loss. It never mutates state.
func (e *Engine) Portfolio() domain.PortfolioSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.snapshot(e.market)
}

// Dashboard bundles current market prices with a portfolio snapshot.
func (e *Engine) Dashboard() domain.Dashboard {
	e.mu.Lock()
	defer e.mu.Unlock()
	prices := make(map[string]float64, len(e.market.prices))
	for s, p := range e.market.prices {
		prices[s] = p
	}
	return domain.Dashboard{
		Market:    prices,
		Portfolio: e.ledger.snapshot(e.market),
		Timestamp: time.Now().UTC(),
	}
}

// TradeHistory returns a copy of the append-only trade log.
func (e *Engine) TradeHistory() []domain.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.tradeHistory()
}

// EquityHistory returns a copy of the bounded equity curve.
func (e *Engine) EquityHistory() []domain.EquityPoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.EquityPoint, len(e.equity))
	copy(out, e.equity)
	return out
}

// recordEquityLocked appends an equity-curve point. Callers must hold e.mu.
func (e *Engine) recordEquityLocked(now time.Time) domain.EquityPoint {
	point := domain.EquityPoint{Time: now, Equity: e.ledger.cash + e.ledger.marketValue(e.market)}
	e.equity = append(e.equity, point)
	if len(e.equity) > e.cfg.HistoryLimit {
		e.equity = e.equity[len(e.equity)-e.cfg.HistoryLimit:]
	}
	return point
}

// --- Simulation driver ---

// tick runs one full simulation cycle: advance prices, evaluate conditional
// orders, record an equity snapshot. The whole cycle happens under a single
// lock acquisition; recorders are invoked afterwards with copied values.
func (e *Engine) tick(ctx context.Context) {
	e.mu.Lock()
	now := time.Now().UTC()
	e.market.advance(now)
	executed := e.book.evaluate(ctx, e.market, e.ledger, e.logger, now)
	point := e.recordEquityLocked(now)
	e.mu.Unlock()

	e.recordTrades(ctx, executed...)
	e.recordSnapshot(ctx, point)
}

// RunSteps performs exactly steps ticks on the caller's goroutine, waiting
// interval between consecutive ticks. A context cancelled while waiting ends
// the run early; a tick never aborts once started.
func (e *Engine) RunSteps(ctx context.Context, steps int, interval time.Duration) error {
	for i := 0; i < steps; i++ {
		e.tick(ctx)
		if i == steps-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return nil
}

// Start launches the unattended background tick loop. It is idempotent: if
// the loop is already running the call returns immediately. An interval of
// zero or less falls back to the configured tick interval.
func (e *Engine) Start(interval time.Duration) {
	e.simMu.Lock()
	defer e.simMu.Unlock()
	if e.running {
		e.logger.Warn(context.Background(), "Simulation already running, ignoring Start")
		return
	}
	if interval <= 0 {
		interval = e.cfg.TickInterval
	}

	e.stopCh = make(chan struct{})
	e.stoppedCh = make(chan struct{})
	e.running = true
	go e.loop(interval, e.stopCh, e.stoppedCh)
	e.logger.Info(context.Background(), "Simulation started", map[string]interface{}{"interval": interval})
}

func (e *Engine) loop(interval time.Duration, stopCh <-chan struct{}, stoppedCh chan<- struct{}) {
	defer close(stoppedCh)
	ctx := context.Background()
	for {
		e.tick(ctx)
		// The stop signal is checked between ticks only, so a tick always
		// completes fully once started.
		select {
		case <-stopCh:
			return
		case <-time.After(interval):
		}
	}
}

// Stop signals the background loop to end after its current tick and waits
// up to a bounded timeout for it to finish. Safe to call when not running.
func (e *Engine) Stop() {
	e.simMu.Lock()
	defer e.simMu.Unlock()
	if !e.running {
		return
	}

	close(e.stopCh)
	select {
	case <-e.stoppedCh:
		e.logger.Info(context.Background(), "Simulation stopped")
	case <-time.After(stopTimeout):
		e.logger.Warn(context.Background(), "Timeout waiting for simulation loop to stop")
	}
	e.running = false
}

// Running reports whether the background simulation loop is active.
func (e *Engine) Running() bool {
	e.simMu.Lock()
	defer e.simMu.Unlock()
	return e.running
}

// --- Recorders ---

func (e *Engine) recordTrades(ctx context.Context, trades ...domain.Trade) {
	if e.tradeRec == nil {
		return
	}
	for i := range trades {
		if err := e.tradeRec.RecordTrade(ctx, &trades[i]); err != nil {
			e.logger.Error(ctx, err, "Failed to persist trade", map[string]interface{}{"tradeID": trades[i].ID})
		}
	}
}

func (e *Engine) recordSnapshot(ctx context.Context, point domain.EquityPoint) {
	if e.snapRec == nil {
		return
	}
	if err := e.snapRec.RecordSnapshot(ctx, point); err != nil {
		e.logger.Error(ctx, err, "Failed to persist equity snapshot")
	}
}
