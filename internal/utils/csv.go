package utils

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"paperTradeBot/internal/domain"
)

// WriteTradesToCSV exports the trade log to a CSV file.
func WriteTradesToCSV(trades []domain.Trade, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"id", "symbol", "side", "quantity", "price", "realized_pnl", "triggered_by", "executed_at"})

	for _, t := range trades {
		writer.Write([]string{
			t.ID,
			t.Symbol,
			string(t.Side),
			strconv.FormatFloat(t.Quantity, 'f', -1, 64),
			strconv.FormatFloat(t.Price, 'f', -1, 64),
			strconv.FormatFloat(t.RealizedPnL, 'f', -1, 64),
			t.TriggeredBy,
			t.ExecutedAt.Format(time.RFC3339),
		})
	}
	return writer.Error()
}
