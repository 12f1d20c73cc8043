package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/flowscan/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier escribiendo a un io.Writer.
type Console struct {
	out   io.Writer
	table bool
	now   func() time.Time
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return NewConsoleWriter(os.Stdout, table)
}

// NewConsoleWriter crea un notificador sobre cualquier writer (tests, ficheros).
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table, now: time.Now}
}

// Notify imprime una señal. En modo tabla añade el detalle del contrato.
func (c *Console) Notify(_ context.Context, message string, sig domain.Signal) error {
	fmt.Fprintf(c.out, "[%s] %s\n", c.now().Format("15:04:05"), message)
	if c.table {
		c.printSignalDetail(sig)
	}
	return nil
}

func (c *Console) printSignalDetail(sig domain.Signal) {
	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("Field", "Value")
	tbl.Append("Contract", sig.Symbol)
	tbl.Append("Strike / Exp", fmt.Sprintf("%.2f %s (%dd)", sig.Strike, sig.Expiration.Format("2006-01-02"), sig.DTE))
	tbl.Append("Underlying", fmt.Sprintf("%s @ %.2f", sig.Underlying, sig.UnderlyingPrice))
	tbl.Append("Bid / Ask / Last", fmt.Sprintf("%.2f / %.2f / %.2f", sig.Bid, sig.Ask, sig.Last))
	tbl.Append("Volume / OI", fmt.Sprintf("%d / %d (%.2fx)", sig.Volume, sig.OpenInterest, sig.VolumeOIRatio))
	tbl.Append("Premium", money(sig.Premium))
	tbl.Append("Moneyness", fmt.Sprintf("%+.2f%% %s", sig.MoneynessPercent, sig.MoneynessCategory))
	tbl.Append("Spread", fmt.Sprintf("%.2f%%", sig.SpreadPercent))
	if d := sig.Greeks.Delta; d != nil {
		tbl.Append("Delta", fmt.Sprintf("%.3f", *d))
	}
	if iv := sig.Greeks.ImpliedVol; iv != nil {
		tbl.Append("IV", fmt.Sprintf("%.1f%%", *iv*100))
	}
	tbl.Render()
}

// PrintSignals imprime las señales recientes en una tabla.
func (c *Console) PrintSignals(signals []domain.Signal) {
	if len(signals) == 0 {
		fmt.Fprintln(c.out, "  No signals yet.")
		return
	}

	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("ID", "Detected", "Contract", "Type", "Strike", "DTE", "Premium", "Vol/OI", "Money", "Strength")
	for _, s := range signals {
		tbl.Append(
			fmt.Sprintf("%d", s.ID),
			s.DetectedAt.Local().Format("01-02 15:04"),
			s.Symbol,
			string(s.Type),
			fmt.Sprintf("%.2f", s.Strike),
			fmt.Sprintf("%d", s.DTE),
			money(s.Premium),
			fmt.Sprintf("%.2fx", s.VolumeOIRatio),
			fmt.Sprintf("%+.1f%%", s.MoneynessPercent),
			strings.ToUpper(string(s.Strength)),
		)
	}
	tbl.Render()
}

// PrintCycles imprime el histórico de ciclos de escaneo.
func (c *Console) PrintCycles(cycles []domain.ScanCycle) {
	if len(cycles) == 0 {
		fmt.Fprintln(c.out, "  No scan cycles recorded.")
		return
	}

	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("Started", "Took", "Tickers", "Quotes", "Signals", "Dups", "Notified", "Opened", "Closed", "Errors")
	for _, cy := range cycles {
		tbl.Append(
			cy.StartedAt.Local().Format("01-02 15:04:05"),
			cy.Duration.Round(time.Millisecond).String(),
			fmt.Sprintf("%d", cy.Tickers),
			fmt.Sprintf("%d", cy.Quotes),
			fmt.Sprintf("%d", cy.Signals),
			fmt.Sprintf("%d", cy.Duplicates),
			fmt.Sprintf("%d", cy.Notified),
			fmt.Sprintf("%d", cy.TradesOpened),
			fmt.Sprintf("%d", cy.TradesClosed),
			fmt.Sprintf("%d", cy.FetchErrors),
		)
	}
	tbl.Render()
}

func money(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("$%.2fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("$%.1fK", v/1_000)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}
