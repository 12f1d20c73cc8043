package paper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/flowscan/internal/domain"
	"github.com/alejandrodnm/flowscan/internal/metrics"
	"github.com/alejandrodnm/flowscan/internal/ports"
)

const (
	defaultQuantity  = 1
	defaultTimeLimit = 24 * time.Hour
)

// ErrAutoEntryDisabled is returned by Enter when paper trading is switched off.
var ErrAutoEntryDisabled = errors.New("paper auto-entry disabled")

// Config holds paper trading-specific settings.
type Config struct {
	AutoEntry         bool
	Quantity          int           // contracts per trade
	TimeLimit         time.Duration // auto-exit after this long in the trade
	StopLossPercent   float64       // 0 = disabled
	TakeProfitPercent float64       // 0 = disabled
}

// DefaultConfig returns auto-entry on, one contract, 24h time limit.
func DefaultConfig() Config {
	return Config{
		AutoEntry: true,
		Quantity:  defaultQuantity,
		TimeLimit: defaultTimeLimit,
	}
}

// Engine manages the lifecycle of paper trades: entry on detection, periodic
// re-marking and a single exit. Storage is the source of truth for trade state.
type Engine struct {
	store ports.TradeStorage
	cfg   Config
	now   func() time.Time
}

// New creates a paper trading engine.
func New(store ports.TradeStorage, cfg Config) *Engine {
	if cfg.Quantity <= 0 {
		cfg.Quantity = defaultQuantity
	}
	if cfg.TimeLimit <= 0 {
		cfg.TimeLimit = defaultTimeLimit
	}
	return &Engine{store: store, cfg: cfg, now: time.Now}
}

// WithClock replaces the engine's time source.
func (pe *Engine) WithClock(now func() time.Time) *Engine {
	pe.now = now
	return pe
}

// Config returns the active configuration.
func (pe *Engine) Config() Config {
	return pe.cfg
}

// Enter opens a paper trade for a persisted signal. If the signal already has a
// trade, that trade is returned unchanged.
func (pe *Engine) Enter(ctx context.Context, sig domain.Signal) (domain.PaperTrade, error) {
	if !pe.cfg.AutoEntry {
		return domain.PaperTrade{}, ErrAutoEntryDisabled
	}
	if !sig.Persisted() {
		return domain.PaperTrade{}, fmt.Errorf("paper.Enter: %s: %w", sig.Symbol, domain.ErrSignalNotPersisted)
	}

	existing, err := pe.store.GetTradeBySignal(ctx, sig.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.PaperTrade{}, fmt.Errorf("paper.Enter: lookup signal %d: %w", sig.ID, err)
	}

	trade, err := domain.NewPaperTrade(sig, pe.cfg.Quantity, pe.now())
	if err != nil {
		return domain.PaperTrade{}, fmt.Errorf("paper.Enter: %w", err)
	}

	created, err := pe.store.CreateTrade(ctx, trade)
	if errors.Is(err, domain.ErrTradeExists) {
		// otra escritura ganó la carrera; la unique constraint decide
		existing, err := pe.store.GetTradeBySignal(ctx, sig.ID)
		if err != nil {
			return domain.PaperTrade{}, fmt.Errorf("paper.Enter: reload signal %d: %w", sig.ID, err)
		}
		return existing, nil
	}
	if err != nil {
		return domain.PaperTrade{}, fmt.Errorf("paper.Enter: create: %w", err)
	}

	metrics.TradesOpenedTotal.Inc()
	slog.Info("paper: trade opened",
		"trade_id", created.ID,
		"signal_id", sig.ID,
		"symbol", created.Symbol,
		"entry", fmt.Sprintf("$%.2f", created.EntryPrice),
		"qty", created.Quantity,
		"strength", string(sig.Strength),
	)
	return created, nil
}

// AutoEnterBatch calls Enter for every signal in order. Signals without a persisted
// identity and failed entries are skipped; only successful entries are returned.
func (pe *Engine) AutoEnterBatch(ctx context.Context, signals []domain.Signal) []domain.PaperTrade {
	trades := make([]domain.PaperTrade, 0, len(signals))
	if !pe.cfg.AutoEntry {
		return trades
	}
	for _, sig := range signals {
		if !sig.Persisted() {
			slog.Debug("paper: skipping unpersisted signal", "symbol", sig.Symbol)
			continue
		}
		trade, err := pe.Enter(ctx, sig)
		if err != nil {
			slog.Warn("paper: error entering trade", "symbol", sig.Symbol, "signal_id", sig.ID, "err", err)
			continue
		}
		trades = append(trades, trade)
	}
	return trades
}

// Monitor re-marks an open trade at the given prices and persists the result.
// On any error the returned trade is the input, unchanged.
func (pe *Engine) Monitor(ctx context.Context, trade domain.PaperTrade, optionPrice, underlyingPrice float64) (domain.PaperTrade, error) {
	marked, err := trade.Mark(optionPrice, underlyingPrice, pe.now())
	if err != nil {
		return trade, fmt.Errorf("paper.Monitor: %w", err)
	}
	if err := pe.store.UpdateTrade(ctx, marked); err != nil {
		return trade, fmt.Errorf("paper.Monitor: update trade %d: %w", trade.ID, err)
	}
	return marked, nil
}

// Exit closes an open trade. Exiting a closed or expired trade returns
// domain.ErrTradeNotOpen. On any error the returned trade is the input, unchanged.
func (pe *Engine) Exit(ctx context.Context, trade domain.PaperTrade, exitPrice, underlyingPrice float64, reason domain.ExitReason) (domain.PaperTrade, error) {
	closed, err := trade.Close(exitPrice, underlyingPrice, reason, pe.now())
	if err != nil {
		return trade, fmt.Errorf("paper.Exit: %w", err)
	}
	if err := pe.store.UpdateTrade(ctx, closed); err != nil {
		return trade, fmt.Errorf("paper.Exit: update trade %d: %w", trade.ID, err)
	}

	metrics.TradesClosedTotal.WithLabelValues(string(reason)).Inc()
	slog.Info("paper: trade closed",
		"trade_id", closed.ID,
		"symbol", closed.Symbol,
		"reason", string(reason),
		"exit", fmt.Sprintf("$%.2f", exitPrice),
		"pnl", fmt.Sprintf("$%.2f", *closed.PnL),
		"pnl_pct", fmt.Sprintf("%.2f%%", *closed.PnLPercent),
	)
	return closed, nil
}

// ExitByID closes a trade at the current market price, for manual exits.
func (pe *Engine) ExitByID(ctx context.Context, id int64, lookup ports.PriceLookup, reason domain.ExitReason) (domain.PaperTrade, error) {
	trade, err := pe.store.GetTrade(ctx, id)
	if err != nil {
		return domain.PaperTrade{}, fmt.Errorf("paper.ExitByID: %w", err)
	}
	if !trade.IsOpen() {
		return trade, fmt.Errorf("paper.ExitByID: trade %d is %s: %w", id, trade.Status, domain.ErrTradeNotOpen)
	}
	opt, und, err := lookup.LookupPrices(ctx, trade)
	if err != nil {
		return trade, fmt.Errorf("paper.ExitByID: lookup prices: %w", err)
	}
	return pe.Exit(ctx, trade, opt, und, reason)
}

// OpenTrades returns every trade currently open.
func (pe *Engine) OpenTrades(ctx context.Context) ([]domain.PaperTrade, error) {
	trades, err := pe.store.ListTrades(ctx, domain.TradeOpen)
	if err != nil {
		return nil, fmt.Errorf("paper.OpenTrades: %w", err)
	}
	return trades, nil
}

// Performance aggregates every stored trade into a summary.
func (pe *Engine) Performance(ctx context.Context) (domain.PerformanceSummary, error) {
	trades, err := pe.store.ListTrades(ctx, "")
	if err != nil {
		return domain.PerformanceSummary{}, fmt.Errorf("paper.Performance: %w", err)
	}
	return domain.Summarize(trades), nil
}
