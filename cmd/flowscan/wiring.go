package main

import (
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/flowscan/config"
	"github.com/alejandrodnm/flowscan/internal/adapters/notify"
	"github.com/alejandrodnm/flowscan/internal/adapters/storage"
	"github.com/alejandrodnm/flowscan/internal/adapters/tradier"
	"github.com/alejandrodnm/flowscan/internal/application/detector"
	"github.com/alejandrodnm/flowscan/internal/application/engine/paper"
	"github.com/alejandrodnm/flowscan/internal/ports"
)

func openStorage(cfg *config.Config) (ports.Storage, error) {
	opts := storage.Options{DuplicateWindow: cfg.DuplicateWindow()}
	switch cfg.Storage.Driver {
	case "postgres":
		return storage.NewPostgresStorage(cfg.Storage.DSN, opts)
	default:
		return storage.NewSQLiteStorage(cfg.Storage.DSN, opts)
	}
}

func newMarketClient(cfg *config.Config) *tradier.Client {
	if cfg.API.Token == "" {
		slog.Warn("TRADIER_TOKEN not set: market data requests will be rejected")
	}
	return tradier.NewClient(tradier.Config{
		BaseURL:        cfg.API.BaseURL,
		Token:          cfg.API.Token,
		WindowDays:     cfg.Scanner.WindowDays,
		MaxExpirations: cfg.Scanner.MaxExpirations,
		RatePerSec:     cfg.API.RatePerSec,
		Timeout:        cfg.APITimeout(),
	})
}

func newDetector(cfg *config.Config) *detector.Detector {
	return detector.New(detector.Thresholds{
		MinPremium:       cfg.Thresholds.MinPremium,
		MinVolumeOIRatio: cfg.Thresholds.MinVolumeOIRatio,
		MinVolume:        cfg.Thresholds.MinVolume,
		MaxDTE:           cfg.Thresholds.MaxDTE,
		PreferOTMPercent: cfg.Thresholds.PreferOTMPercent,
	})
}

func newPaperEngine(cfg *config.Config, store ports.TradeStorage) *paper.Engine {
	return paper.New(store, paper.Config{
		AutoEntry:         cfg.AutoEntry(),
		Quantity:          cfg.Paper.Quantity,
		TimeLimit:         cfg.TimeLimit(),
		StopLossPercent:   cfg.Paper.StopLossPercent,
		TakeProfitPercent: cfg.Paper.TakeProfitPercent,
	})
}

// newNotifier combina consola y SMS según config. Devuelve nil si no hay ninguno.
func newNotifier(cfg *config.Config) (ports.Notifier, error) {
	var all notify.Multi
	if cfg.ConsoleEnabled() {
		all = append(all, notify.NewConsole(cfg.Notify.Table))
	}
	if cfg.Notify.SMS.Enabled {
		sms, err := notify.NewSMS(notify.SMSConfig{
			AccountSID: cfg.Notify.SMS.AccountSID,
			AuthToken:  cfg.Notify.SMS.AuthToken,
			From:       cfg.Notify.SMS.From,
			To:         cfg.Notify.SMS.To,
		})
		if err != nil {
			return nil, fmt.Errorf("sms notifier: %w", err)
		}
		all = append(all, sms)
	}

	switch len(all) {
	case 0:
		return nil, nil
	case 1:
		return all[0], nil
	default:
		return all, nil
	}
}
