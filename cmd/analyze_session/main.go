package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"paperTradeBot/internal/adapters/logger"
	"paperTradeBot/internal/adapters/sqlite"
	"paperTradeBot/internal/analytics"
)

func main() {
	dbPath := flag.String("db", "./data/paper_trading.db", "Path to the session database")
	flag.Parse()

	appLogger := logger.NewStdLogger(logger.LevelWarn)
	ctx := context.Background()

	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: *dbPath,
		Logger: appLogger,
	})
	if err != nil {
		log.Fatalf("Error opening session database: %v", err)
	}
	defer repo.Close()

	trades, err := repo.FindTrades(ctx)
	if err != nil {
		log.Fatalf("Error reading trades: %v", err)
	}
	snapshots, err := repo.FindSnapshots(ctx)
	if err != nil {
		log.Fatalf("Error reading equity snapshots: %v", err)
	}

	if len(trades) == 0 && len(snapshots) == 0 {
		log.Println("No session data found. Run the bot first.")
		return
	}

	metrics := analytics.AnalyzePerformance(trades, snapshots)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Sells\tWins\tLosses\tWinRate\tAvgWin\tAvgLoss\tRealized\tMaxDD\tFinalEquity\t")
	fmt.Fprintf(w, "%d\t%d\t%d\t%.2f%%\t%.2f\t%.2f\t%.2f\t%.2f%%\t%.2f\t\n",
		metrics.TotalSells,
		metrics.WinningSells,
		metrics.LosingSells,
		metrics.WinRate*100,
		metrics.AverageWin,
		metrics.AverageLoss,
		metrics.TotalRealized,
		metrics.MaxDrawdown*100,
		metrics.FinalEquity,
	)
	w.Flush()

	fmt.Printf("\nTrades recorded: %d, equity snapshots: %d\n", len(trades), len(snapshots))
}
