package domain

// PerformanceSummary is the aggregate view over every paper trade.
// Only closed or expired trades with a final P/L contribute to the P/L statistics.
type PerformanceSummary struct {
	TotalTrades   int
	OpenTrades    int
	ClosedTrades  int
	WinningTrades int
	LosingTrades  int
	WinRate       float64 // percent, 2 decimals
	TotalPnL      float64
	AvgPnL        float64
	BestTrade     float64
	WorstTrade    float64
}

// Summarize computes the performance summary from the full set of trades.
// Break-even trades (P/L exactly 0) count as closed but neither win nor loss.
func Summarize(trades []PaperTrade) PerformanceSummary {
	var s PerformanceSummary
	s.TotalTrades = len(trades)

	first := true
	for _, t := range trades {
		if t.Status == TradeOpen {
			s.OpenTrades++
			continue
		}
		if !t.Status.Terminal() || t.PnL == nil {
			continue
		}

		pnl := *t.PnL
		s.ClosedTrades++
		s.TotalPnL += pnl
		switch {
		case pnl > 0:
			s.WinningTrades++
		case pnl < 0:
			s.LosingTrades++
		}
		if first || pnl > s.BestTrade {
			s.BestTrade = pnl
		}
		if first || pnl < s.WorstTrade {
			s.WorstTrade = pnl
		}
		first = false
	}

	if s.ClosedTrades > 0 {
		s.WinRate = Round2(float64(s.WinningTrades) / float64(s.ClosedTrades) * 100)
		s.AvgPnL = Round2(s.TotalPnL / float64(s.ClosedTrades))
	}
	s.TotalPnL = Round2(s.TotalPnL)
	return s
}
