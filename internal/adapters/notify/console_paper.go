package notify

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/flowscan/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// PrintTrades imprime los paper trades con su P/L (realizado o último mark).
func (c *Console) PrintTrades(trades []domain.PaperTrade) {
	if len(trades) == 0 {
		fmt.Fprintln(c.out, "  No paper trades.")
		return
	}

	now := c.now()
	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("ID", "Contract", "Status", "Entry", "Last/Exit", "P/L", "P/L %", "Max", "Min", "Held", "Reason")
	for _, t := range trades {
		price, pnl, pct := t.LastPrice, t.UnrealizedPnL, t.UnrealizedPnLPercent
		held := now.Sub(t.EntryTime)
		if !t.IsOpen() {
			price, pnl, pct = deref(t.ExitPrice), deref(t.PnL), deref(t.PnLPercent)
			if t.ExitTime != nil {
				held = t.ExitTime.Sub(t.EntryTime)
			}
		}
		tbl.Append(
			fmt.Sprintf("%d", t.ID),
			t.Symbol,
			string(t.Status),
			fmt.Sprintf("%.2f", t.EntryPrice),
			priceLabel(price),
			fmt.Sprintf("$%+.2f", pnl),
			fmt.Sprintf("%+.2f%%", pct),
			optMoney(t.MaxPnL),
			optMoney(t.MinPnL),
			heldLabel(held),
			reasonLabel(t.ExitReason),
		)
	}
	tbl.Render()
}

// PrintPerformance imprime el resumen agregado del paper trading.
func (c *Console) PrintPerformance(s domain.PerformanceSummary) {
	fmt.Fprintf(c.out, "\n")
	fmt.Fprintf(c.out, "========================================================\n")
	fmt.Fprintf(c.out, "  PAPER TRADING PERFORMANCE\n")
	fmt.Fprintf(c.out, "========================================================\n")

	if s.TotalTrades == 0 {
		fmt.Fprintln(c.out, "\n  No paper trades yet. Run `flowscan scan` with paper trading enabled.")
		return
	}

	fmt.Fprintf(c.out, "\n  --- TRADES ---\n")
	fmt.Fprintf(c.out, "  Total:                 %d\n", s.TotalTrades)
	fmt.Fprintf(c.out, "  Open:                  %d\n", s.OpenTrades)
	fmt.Fprintf(c.out, "  Closed:                %d\n", s.ClosedTrades)
	fmt.Fprintf(c.out, "  Winners / Losers:      %d / %d\n", s.WinningTrades, s.LosingTrades)

	if s.ClosedTrades == 0 {
		fmt.Fprintln(c.out, "\n  No closed trades yet: P/L stats pending.")
		fmt.Fprintln(c.out)
		return
	}

	fmt.Fprintf(c.out, "\n  --- P&L ---\n")
	fmt.Fprintf(c.out, "  Win rate:              %.2f%%\n", s.WinRate)
	fmt.Fprintf(c.out, "  Total P/L:             $%+.2f\n", s.TotalPnL)
	fmt.Fprintf(c.out, "  Avg P/L per trade:     $%+.2f\n", s.AvgPnL)
	fmt.Fprintf(c.out, "  Best trade:            $%+.2f\n", s.BestTrade)
	fmt.Fprintf(c.out, "  Worst trade:           $%+.2f\n", s.WorstTrade)
	fmt.Fprintln(c.out)
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func priceLabel(v float64) string {
	if v <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

func optMoney(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("$%+.2f", *p)
}

func heldLabel(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 48*time.Hour {
		return fmt.Sprintf("%.1fh", d.Hours())
	}
	return fmt.Sprintf("%.1fd", d.Hours()/24)
}

func reasonLabel(r domain.ExitReason) string {
	if r == "" {
		return "-"
	}
	return string(r)
}
