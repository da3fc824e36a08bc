package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"paperTradeBot/config"
	"paperTradeBot/internal/adapters/logger"
	"paperTradeBot/internal/analytics"
	"paperTradeBot/internal/domain"
	"paperTradeBot/internal/engine"
	"paperTradeBot/internal/risk"
	"paperTradeBot/internal/utils"
)

func main() {
	steps := flag.Int("steps", 50, "Number of simulation ticks to run")
	intervalMs := flag.Int("interval", 100, "Milliseconds between ticks")
	symbol := flag.String("symbol", "AAPL", "Symbol to trade during the session")
	csvPath := flag.String("csv", "", "Optional path to export the trade log as CSV")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	// 2. Build an in-memory engine (no persistence for demo sessions)
	eng, err := engine.New(cfg, appLogger, nil, nil)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize trading engine: %v", err)
	}

	riskMgr, err := risk.NewManager(risk.Config{
		StopLossPercent:     cfg.StopLoss,
		TakeProfitPercent:   cfg.TakeProfit,
		PositionSizePercent: cfg.PositionSizePercent,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize risk manager: %v", err)
	}

	// 3. Open a protected position sized from current equity
	price, err := eng.GetMarketPrice(*symbol)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	equity := eng.Portfolio().Equity
	quantity := riskMgr.GetPositionSize(ctx, equity, price)
	stopLoss := riskMgr.GetStopLoss(ctx, price)
	takeProfit := riskMgr.GetTakeProfit(ctx, price)

	result, err := eng.PlaceOrder(ctx, engine.OrderRequest{
		Symbol:     *symbol,
		Side:       domain.Buy,
		Quantity:   quantity,
		StopLoss:   &stopLoss,
		TakeProfit: &takeProfit,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to place opening order: %v", err)
	}
	appLogger.Info(ctx, "Opening order placed", map[string]interface{}{
		"tradeID":            result.Trade.ID,
		"conditionalOrderID": result.ConditionalOrderID,
		"price":              result.Trade.Price,
		"quantity":           result.Trade.Quantity,
	})

	// 4. Run the bounded simulation session
	if err := eng.RunSteps(ctx, *steps, time.Duration(*intervalMs)*time.Millisecond); err != nil {
		log.Fatalf("FATAL: Simulation run failed: %v", err)
	}

	// 5. Report
	dashboard := eng.Dashboard()
	fmt.Printf("\n=== Market after %d ticks ===\n", *steps)
	for s, p := range dashboard.Market {
		fmt.Printf("  %-8s %12.2f\n", s, p)
	}
	pf := dashboard.Portfolio
	fmt.Printf("\n=== Portfolio ===\n")
	fmt.Printf("  cash       %12.2f\n", pf.Cash)
	fmt.Printf("  equity     %12.2f\n", pf.Equity)
	fmt.Printf("  realized   %12.2f\n", pf.RealizedPnL)
	fmt.Printf("  unrealized %12.2f\n", pf.UnrealizedPnL)
	for _, pos := range pf.Positions {
		fmt.Printf("  position   %-8s qty=%.4f avg=%.2f value=%.2f\n", pos.Symbol, pos.Quantity, pos.AvgPrice, pos.MarketValue)
	}
	for _, o := range eng.OpenConditionalOrders() {
		fmt.Printf("  open order %s on %s qty=%.4f\n", o.ID, o.Symbol, o.Quantity)
	}

	trades := eng.TradeHistory()
	tradePtrs := make([]*domain.Trade, len(trades))
	for i := range trades {
		tradePtrs[i] = &trades[i]
	}
	metrics := analytics.AnalyzePerformance(tradePtrs, eng.EquityHistory())
	fmt.Printf("\n=== Session performance ===\n")
	fmt.Printf("  sells         %d (win rate %.0f%%)\n", metrics.TotalSells, metrics.WinRate*100)
	fmt.Printf("  realized P/L  %.2f\n", metrics.TotalRealized)
	fmt.Printf("  max drawdown  %.2f%%\n", metrics.MaxDrawdown*100)
	fmt.Printf("  final equity  %.2f\n", metrics.FinalEquity)

	// 6. Optional CSV export
	if *csvPath != "" {
		if err := utils.WriteTradesToCSV(trades, *csvPath); err != nil {
			log.Fatalf("FATAL: Failed to export trades: %v", err)
		}
		fmt.Printf("\nTrade log exported to %s\n", *csvPath)
	}
}
