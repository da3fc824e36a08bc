package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperTradeBot/config"
	"paperTradeBot/internal/domain"
	"paperTradeBot/internal/ports"
)

// Mock implementations
type mockLogger struct {
	mu        sync.Mutex
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnMsgs = append(m.warnMsgs, msg)
}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockTradeRecorder struct {
	mu     sync.Mutex
	trades []domain.Trade
	err    error
}

func (m *mockTradeRecorder) RecordTrade(ctx context.Context, trade *domain.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.trades = append(m.trades, *trade)
	return nil
}

func (m *mockTradeRecorder) recorded() []domain.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Trade, len(m.trades))
	copy(out, m.trades)
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		StartingCash:     100000,
		Volatility:       0.01,
		SpikeProbability: 0.01,
		SpikeScale:       0.05,
		HistoryLimit:     500,
		TickInterval:     10 * time.Millisecond,
		RandomSeed:       42,
	}
}

func newTestEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	eng, err := New(cfg, &mockLogger{}, nil, nil)
	require.NoError(t, err)
	return eng
}

func floatPtr(v float64) *float64 { return &v }

func TestNew_MissingDependencies(t *testing.T) {
	_, err := New(nil, &mockLogger{}, nil, nil)
	assert.Error(t, err)

	_, err = New(testConfig(), nil, nil, nil)
	assert.Error(t, err)

	cfg := testConfig()
	cfg.StartingCash = 0
	_, err = New(cfg, &mockLogger{}, nil, nil)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestNew_SeedsDefaultUniverse(t *testing.T) {
	eng := newTestEngine(t, nil)

	price, err := eng.GetMarketPrice("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 150.0, price)

	assert.Len(t, eng.ListSymbols(), 5)

	// Construction records the initial equity snapshot.
	equity := eng.EquityHistory()
	require.Len(t, equity, 1)
	assert.Equal(t, 100000.0, equity[0].Equity)
}

func TestGetMarketPrice_UnknownSymbol(t *testing.T) {
	eng := newTestEngine(t, nil)

	_, err := eng.GetMarketPrice("NOPE")
	assert.ErrorIs(t, err, ports.ErrSymbolNotFound)
}

func TestAddInstrument_OverwritesPrice(t *testing.T) {
	eng := newTestEngine(t, nil)

	require.NoError(t, eng.AddInstrument("MSFT", 400.0))
	price, err := eng.GetMarketPrice("MSFT")
	require.NoError(t, err)
	assert.Equal(t, 400.0, price)

	require.NoError(t, eng.AddInstrument("MSFT", 410.0))
	price, err = eng.GetMarketPrice("MSFT")
	require.NoError(t, err)
	assert.Equal(t, 410.0, price)

	history, err := eng.PriceHistory("MSFT")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestValidateOrder(t *testing.T) {
	eng := newTestEngine(t, nil)

	tests := []struct {
		name     string
		symbol   string
		side     domain.OrderSide
		quantity float64
		wantOK   bool
	}{
		{name: "valid buy", symbol: "AAPL", side: domain.Buy, quantity: 1, wantOK: true},
		{name: "unknown side", symbol: "AAPL", side: domain.OrderSide("HOLD"), quantity: 1, wantOK: false},
		{name: "zero quantity", symbol: "AAPL", side: domain.Buy, quantity: 0, wantOK: false},
		{name: "negative quantity", symbol: "AAPL", side: domain.Buy, quantity: -2, wantOK: false},
		{name: "unknown symbol", symbol: "NOPE", side: domain.Buy, quantity: 1, wantOK: false},
		{name: "sell without holdings", symbol: "AAPL", side: domain.Sell, quantity: 1, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := eng.ValidateOrder(tt.symbol, tt.side, tt.quantity)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestPlaceOrder_BuyThenSellFlatIsZeroRealized(t *testing.T) {
	eng := newTestEngine(t, nil)
	ctx := context.Background()

	buy, err := eng.PlaceOrder(ctx, OrderRequest{Symbol: "AAPL", Side: domain.Buy, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, domain.Buy, buy.Trade.Side)
	assert.Empty(t, buy.ConditionalOrderID)

	// No price movement between buy and sell: realized P/L must be exactly zero.
	sell, err := eng.PlaceOrder(ctx, OrderRequest{Symbol: "AAPL", Side: domain.Sell, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, sell.Trade.RealizedPnL)
	assert.Equal(t, 0.0, eng.Portfolio().RealizedPnL)

	// The position is gone and cash is back where it started.
	snap := eng.Portfolio()
	assert.Empty(t, snap.Positions)
	assert.InDelta(t, 100000.0, snap.Cash, 1e-9)
}

func TestPlaceOrder_AverageCostIsWeightedMean(t *testing.T) {
	eng := newTestEngine(t, nil)
	ctx := context.Background()

	// Fill at 150, then force the price to 200 and fill again.
	_, err := eng.PlaceOrder(ctx, OrderRequest{Symbol: "AAPL", Side: domain.Buy, Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, eng.AddInstrument("AAPL", 200.0))
	_, err = eng.PlaceOrder(ctx, OrderRequest{Symbol: "AAPL", Side: domain.Buy, Quantity: 6})
	require.NoError(t, err)

	snap := eng.Portfolio()
	require.Len(t, snap.Positions, 1)
	wantAvg := (150.0*2 + 200.0*6) / 8
	assert.InDelta(t, wantAvg, snap.Positions[0].AvgPrice, 1e-9)
	assert.InDelta(t, 8.0, snap.Positions[0].Quantity, 1e-9)

	// Selling part of the position must not alter the basis.
	_, err = eng.PlaceOrder(ctx, OrderRequest{Symbol: "AAPL", Side: domain.Sell, Quantity: 3})
	require.NoError(t, err)
	snap = eng.Portfolio()
	require.Len(t, snap.Positions, 1)
	assert.InDelta(t, wantAvg, snap.Positions[0].AvgPrice, 1e-9)
}

func TestPlaceOrder_InsufficientFundsLeavesStateUnchanged(t *testing.T) {
	cfg := testConfig()
	cfg.StartingCash = 100
	eng := newTestEngine(t, cfg)

	_, err := eng.PlaceOrder(context.Background(), OrderRequest{Symbol: "AAPL", Side: domain.Buy, Quantity: 1})
	assert.ErrorIs(t, err, ports.ErrInsufficientFunds)

	snap := eng.Portfolio()
	assert.Equal(t, 100.0, snap.Cash)
	assert.Empty(t, snap.Positions)
	assert.Empty(t, eng.TradeHistory())
}

func TestPlaceOrder_SellMoreThanHeldFails(t *testing.T) {
	eng := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := eng.PlaceOrder(ctx, OrderRequest{Symbol: "AAPL", Side: domain.Buy, Quantity: 1})
	require.NoError(t, err)
	cashBefore := eng.Portfolio().Cash

	_, err = eng.PlaceOrder(ctx, OrderRequest{Symbol: "AAPL", Side: domain.Sell, Quantity: 2})
	assert.ErrorIs(t, err, ports.ErrInvalidOrder)

	snap := eng.Portfolio()
	assert.Equal(t, cashBefore, snap.Cash)
	require.Len(t, snap.Positions, 1)
	assert.InDelta(t, 1.0, snap.Positions[0].Quantity, 1e-9)
}

func TestPlaceOrder_EquityUnchangedByMarketOrder(t *testing.T) {
	cfg := testConfig()
	cfg.StartingCash = 10000
	eng := newTestEngine(t, cfg)

	// A zero-slippage market order converts cash into an equally valued
	// position, so equity is unchanged.
	_, err := eng.PlaceOrder(context.Background(), OrderRequest{Symbol: "AAPL", Side: domain.Buy, Quantity: 2})
	require.NoError(t, err)

	snap := eng.Portfolio()
	assert.InDelta(t, 10000.0, snap.Equity, 1e-9)
	assert.InDelta(t, 10000.0-2*150.0, snap.Cash, 1e-9)
}

func TestPlaceOrder_BuyWithStopLossCreatesConditional(t *testing.T) {
	eng := newTestEngine(t, nil)

	result, err := eng.PlaceOrder(context.Background(), OrderRequest{
		Symbol:   "AAPL",
		Side:     domain.Buy,
		Quantity: 1,
		StopLoss: floatPtr(140.0),
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.ConditionalOrderID)

	open := eng.OpenConditionalOrders()
	require.Len(t, open, 1)
	assert.Equal(t, result.ConditionalOrderID, open[0].ID)
	assert.Equal(t, domain.Sell, open[0].Side)
	require.NotNil(t, open[0].StopLoss)
	assert.Equal(t, 140.0, *open[0].StopLoss)
}

func TestEvaluate_StopLossTriggersExactlyAtThreshold(t *testing.T) {
	eng := newTestEngine(t, nil)
	ctx := context.Background()

	result, err := eng.PlaceOrder(ctx, OrderRequest{
		Symbol:   "AAPL",
		Side:     domain.Buy,
		Quantity: 1,
		StopLoss: floatPtr(140.0),
	})
	require.NoError(t, err)

	// Above the stop: nothing happens.
	require.NoError(t, eng.AddInstrument("AAPL", 141.0))
	eng.EvaluateConditionalOrders(ctx)
	assert.Len(t, eng.OpenConditionalOrders(), 1)

	// At/below the stop: exactly one protective sell fires.
	require.NoError(t, eng.AddInstrument("AAPL", 139.0))
	eng.EvaluateConditionalOrders(ctx)
	assert.Empty(t, eng.OpenConditionalOrders())

	trades := eng.TradeHistory()
	require.Len(t, trades, 2)
	sell := trades[1]
	assert.Equal(t, domain.Sell, sell.Side)
	assert.InDelta(t, 1.0, sell.Quantity, 1e-9)
	assert.Equal(t, result.ConditionalOrderID, sell.TriggeredBy)
	assert.InDelta(t, 139.0-150.0, sell.RealizedPnL, 1e-9)
	assert.Empty(t, eng.Portfolio().Positions)

	// Re-evaluating is a no-op: the order is terminal.
	eng.EvaluateConditionalOrders(ctx)
	assert.Len(t, eng.TradeHistory(), 2)
}

func TestEvaluate_TakeProfitTriggers(t *testing.T) {
	eng := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := eng.PlaceOrder(ctx, OrderRequest{
		Symbol:     "AAPL",
		Side:       domain.Buy,
		Quantity:   2,
		TakeProfit: floatPtr(160.0),
	})
	require.NoError(t, err)

	require.NoError(t, eng.AddInstrument("AAPL", 161.0))
	eng.EvaluateConditionalOrders(ctx)

	trades := eng.TradeHistory()
	require.Len(t, trades, 2)
	assert.InDelta(t, (161.0-150.0)*2, trades[1].RealizedPnL, 1e-9)
	assert.InDelta(t, (161.0-150.0)*2, eng.Portfolio().RealizedPnL, 1e-9)
}

func TestEvaluate_CancelsWhenPositionGone(t *testing.T) {
	log := &mockLogger{}
	eng, err := New(testConfig(), log, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = eng.PlaceOrder(ctx, OrderRequest{
		Symbol:   "AAPL",
		Side:     domain.Buy,
		Quantity: 1,
		StopLoss: floatPtr(140.0),
	})
	require.NoError(t, err)

	// Close the position manually before the stop fires.
	_, err = eng.PlaceOrder(ctx, OrderRequest{Symbol: "AAPL", Side: domain.Sell, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, eng.AddInstrument("AAPL", 139.0))
	eng.EvaluateConditionalOrders(ctx)

	// Cancelled silently: no new trade, order no longer open, warning logged.
	assert.Empty(t, eng.OpenConditionalOrders())
	assert.Len(t, eng.TradeHistory(), 2)
	assert.NotEmpty(t, log.warnMsgs)
}

func TestEvaluate_ClampsToCurrentHoldings(t *testing.T) {
	eng := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := eng.PlaceOrder(ctx, OrderRequest{
		Symbol:   "AAPL",
		Side:     domain.Buy,
		Quantity: 5,
		StopLoss: floatPtr(140.0),
	})
	require.NoError(t, err)

	// Unrelated activity reduces holdings below the protected quantity.
	_, err = eng.PlaceOrder(ctx, OrderRequest{Symbol: "AAPL", Side: domain.Sell, Quantity: 3})
	require.NoError(t, err)

	require.NoError(t, eng.AddInstrument("AAPL", 139.0))
	eng.EvaluateConditionalOrders(ctx)

	trades := eng.TradeHistory()
	require.Len(t, trades, 3)
	// The protective sell fills only what is still held; the remainder is
	// not requeued.
	assert.InDelta(t, 2.0, trades[2].Quantity, 1e-9)
	assert.Empty(t, eng.OpenConditionalOrders())
	assert.Empty(t, eng.Portfolio().Positions)
}

func TestRunSteps_RecordsOneSnapshotPerTick(t *testing.T) {
	eng := newTestEngine(t, nil)

	before := len(eng.EquityHistory())
	require.NoError(t, eng.RunSteps(context.Background(), 5, time.Millisecond))
	assert.Equal(t, before+5, len(eng.EquityHistory()))

	history, err := eng.PriceHistory("AAPL")
	require.NoError(t, err)
	assert.Len(t, history, 6) // initial point + 5 ticks
}

func TestRunSteps_ContextCancellation(t *testing.T) {
	eng := newTestEngine(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := eng.RunSteps(ctx, 10, 50*time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
	// The first tick still ran to completion.
	assert.Equal(t, 2, len(eng.EquityHistory()))
}

func TestStartStop_Lifecycle(t *testing.T) {
	eng := newTestEngine(t, nil)

	// Stop before start is a no-op.
	eng.Stop()
	assert.False(t, eng.Running())

	eng.Start(5 * time.Millisecond)
	assert.True(t, eng.Running())

	// Second Start must not spawn a second loop.
	eng.Start(5 * time.Millisecond)
	assert.True(t, eng.Running())

	time.Sleep(30 * time.Millisecond)
	eng.Stop()
	assert.False(t, eng.Running())

	// The loop has quiesced: history no longer grows.
	after := len(eng.EquityHistory())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, len(eng.EquityHistory()))

	// Stop again is safe.
	eng.Stop()
}

func TestPlaceOrder_PersistsThroughRecorder(t *testing.T) {
	rec := &mockTradeRecorder{}
	eng, err := New(testConfig(), &mockLogger{}, rec, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = eng.PlaceOrder(ctx, OrderRequest{Symbol: "AAPL", Side: domain.Buy, Quantity: 1, StopLoss: floatPtr(140.0)})
	require.NoError(t, err)
	require.NoError(t, eng.AddInstrument("AAPL", 100.0))
	eng.EvaluateConditionalOrders(ctx)

	recorded := rec.recorded()
	require.Len(t, recorded, 2)
	assert.Equal(t, domain.Buy, recorded[0].Side)
	assert.Equal(t, domain.Sell, recorded[1].Side)
}

func TestConcurrentOrdersDuringSimulation(t *testing.T) {
	cfg := testConfig()
	eng := newTestEngine(t, cfg)
	ctx := context.Background()

	eng.Start(time.Millisecond)
	defer eng.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, _ = eng.PlaceOrder(ctx, OrderRequest{Symbol: "AAPL", Side: domain.Buy, Quantity: 0.1})
				_ = eng.Portfolio()
				_ = eng.OpenConditionalOrders()
			}
		}()
	}
	wg.Wait()

	// Invariants hold under concurrency: cash never negative, no negative
	// positions.
	snap := eng.Portfolio()
	assert.GreaterOrEqual(t, snap.Cash, 0.0)
	for _, pos := range snap.Positions {
		assert.Greater(t, pos.Quantity, 0.0)
	}
}
