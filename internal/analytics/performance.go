package analytics

import (
	"sort"

	"paperTradeBot/internal/domain"
)

// PerformanceMetrics holds summary statistics for a trading session.
// Trade-level figures are computed from sell-side fills only, since those
// are the fills that lock in profit or loss.
type PerformanceMetrics struct {
	TotalSells    int
	WinningSells  int
	LosingSells   int
	WinRate       float64
	TotalRealized float64
	AverageWin    float64
	AverageLoss   float64
	ProfitFactor  float64
	MaxDrawdown   float64
	FinalEquity   float64
}

// AnalyzePerformance computes session statistics from the trade log and the
// equity curve. Either input may be empty.
func AnalyzePerformance(trades []*domain.Trade, equity []domain.EquityPoint) *PerformanceMetrics {
	metrics := &PerformanceMetrics{}

	sells := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Side == domain.Sell {
			sells = append(sells, t)
		}
	}
	sort.Slice(sells, func(i, j int) bool {
		return sells[i].ExecutedAt.Before(sells[j].ExecutedAt)
	})

	var grossWin, grossLoss float64
	for _, t := range sells {
		metrics.TotalSells++
		metrics.TotalRealized += t.RealizedPnL
		if t.RealizedPnL > 0 {
			metrics.WinningSells++
			grossWin += t.RealizedPnL
		} else {
			metrics.LosingSells++
			grossLoss += -t.RealizedPnL
		}
	}
	if metrics.TotalSells > 0 {
		metrics.WinRate = float64(metrics.WinningSells) / float64(metrics.TotalSells)
	}
	if metrics.WinningSells > 0 {
		metrics.AverageWin = grossWin / float64(metrics.WinningSells)
	}
	if metrics.LosingSells > 0 {
		metrics.AverageLoss = -grossLoss / float64(metrics.LosingSells)
	}
	if grossLoss > 0 {
		metrics.ProfitFactor = grossWin / grossLoss
	}

	// Max drawdown over the equity curve, as a fraction of the peak.
	var peak float64
	for i, p := range equity {
		if i == 0 || p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			drawdown := (peak - p.Equity) / peak
			if drawdown > metrics.MaxDrawdown {
				metrics.MaxDrawdown = drawdown
			}
		}
		metrics.FinalEquity = p.Equity
	}

	return metrics
}
