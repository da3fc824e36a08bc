package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"

	"paperTradeBot/config"
	"paperTradeBot/internal/adapters/logger"
	"paperTradeBot/internal/adapters/sqlite"
	"paperTradeBot/internal/engine"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()

	// 4. Initialize the Trading Engine
	eng, err := engine.New(cfg, appLogger, repo, repo)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize trading engine")
		log.Fatalf("FATAL: Failed to initialize trading engine: %v", err)
	}
	appLogger.Info(context.Background(), "Trading engine initialized", map[string]interface{}{
		"startingCash": cfg.StartingCash,
		"symbols":      eng.ListSymbols(),
	})

	// 5. Run the background simulation until interrupted
	eng.Start(cfg.TickInterval)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	appLogger.Info(context.Background(), "Received shutdown signal", map[string]interface{}{"signal": sig.String()})

	eng.Stop()

	snap := eng.Portfolio()
	appLogger.Info(context.Background(), "Final portfolio", map[string]interface{}{
		"cash":     snap.Cash,
		"equity":   snap.Equity,
		"totalPnL": snap.TotalPnL,
	})
}
