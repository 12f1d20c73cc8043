package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/flowscan/internal/adapters/notify"
	"github.com/alejandrodnm/flowscan/internal/application/scanner"
	"github.com/alejandrodnm/flowscan/internal/domain"
)

var scanOnce bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the scan loop: detect, record, notify and paper trade",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStorage(cfg)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		notifier, err := newNotifier(cfg)
		if err != nil {
			return err
		}
		client := newMarketClient(cfg)

		s := scanner.New(scanner.Config{
			Interval:          cfg.ScanInterval(),
			Tickers:           cfg.Scanner.Tickers,
			TickerDelay:       cfg.TickerDelay(),
			MinNotifyStrength: domain.ParseStrength(cfg.Notify.MinStrength),
			Once:              scanOnce,
		}, scanner.Deps{
			Market:   client,
			Prices:   client,
			Storage:  store,
			Notifier: notifier,
			Format:   notify.FormatSignal,
			Detector: newDetector(cfg),
			Paper:    newPaperEngine(cfg, store),
		})

		slog.Info("flowscan starting",
			"config", configPath,
			"tickers", cfg.Scanner.Tickers,
			"interval", cfg.ScanInterval(),
			"storage", cfg.Storage.Driver,
			"auto_entry", cfg.AutoEntry(),
			"sms", cfg.Notify.SMS.Enabled,
			"once", scanOnce,
		)

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if err := s.Run(ctx); err != nil {
			return fmt.Errorf("scanner exited with error: %w", err)
		}
		slog.Info("flowscan stopped cleanly")
		return nil
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanOnce, "once", false, "run one scan cycle and exit")
}
