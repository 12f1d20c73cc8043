package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/flowscan/internal/adapters/notify"
	"github.com/alejandrodnm/flowscan/internal/domain"
)

var (
	tradesStatus string
	signalsLimit int
	cyclesLimit  int
)

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "List paper trades",
	RunE: func(cmd *cobra.Command, args []string) error {
		status := domain.TradeStatus(tradesStatus)
		switch status {
		case "", domain.TradeOpen, domain.TradeClosed, domain.TradeExpired:
		default:
			return fmt.Errorf("invalid --status %q: want open|closed|expired", tradesStatus)
		}

		store, err := openStorage(cfg)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		trades, err := store.ListTrades(cmd.Context(), status)
		if err != nil {
			return err
		}
		notify.NewConsoleWriter(cmd.OutOrStdout(), true).PrintTrades(trades)
		return nil
	},
}

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "List the most recent signals",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStorage(cfg)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		signals, err := store.RecentSignals(cmd.Context(), signalsLimit)
		if err != nil {
			return err
		}
		notify.NewConsoleWriter(cmd.OutOrStdout(), true).PrintSignals(signals)
		return nil
	},
}

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "List the most recent scan cycles",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStorage(cfg)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		cycles, err := store.RecentCycles(cmd.Context(), cyclesLimit)
		if err != nil {
			return err
		}
		notify.NewConsoleWriter(cmd.OutOrStdout(), true).PrintCycles(cycles)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the paper trading performance summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStorage(cfg)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		summary, err := newPaperEngine(cfg, store).Performance(cmd.Context())
		if err != nil {
			return err
		}
		notify.NewConsoleWriter(cmd.OutOrStdout(), false).PrintPerformance(summary)
		return nil
	},
}

func init() {
	tradesCmd.Flags().StringVar(&tradesStatus, "status", "", "filter by status: open|closed|expired")
	signalsCmd.Flags().IntVar(&signalsLimit, "limit", 50, "max rows")
	cyclesCmd.Flags().IntVar(&cyclesLimit, "limit", 20, "max rows")
}
