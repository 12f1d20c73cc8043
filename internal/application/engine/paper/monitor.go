package paper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/flowscan/internal/domain"
	"github.com/alejandrodnm/flowscan/internal/ports"
)

// MonitorResult contains everything produced by one monitoring pass.
type MonitorResult struct {
	Marked  int
	Skipped int
	Closed  []domain.PaperTrade
	Open    []domain.PaperTrade
}

// MonitorAll re-marks every open trade and applies the auto-exit policy.
// A trade whose price lookup fails is skipped and retried on the next pass,
// unless its contract is already past expiration: then it is expired at its
// last known price. A trade closed elsewhere since the snapshot was taken is
// rejected by storage and skipped.
func (pe *Engine) MonitorAll(ctx context.Context, trades []domain.PaperTrade, lookup ports.PriceLookup) MonitorResult {
	var result MonitorResult

	for _, trade := range trades {
		if !trade.IsOpen() {
			continue
		}

		opt, und, err := lookup.LookupPrices(ctx, trade)
		if err != nil && trade.DaysToExpiration(pe.now()) < 0 {
			// contrato vencido: el broker ya no lo cotiza, se cierra al último mark
			exitPrice, exitUnderlying := lastKnownPrices(trade)
			expired, expErr := pe.ExpireTrade(ctx, trade, exitPrice, exitUnderlying)
			if expErr != nil {
				result.Skipped++
				slog.Warn("paper: error expiring trade", "trade_id", trade.ID, "err", expErr)
				continue
			}
			result.Closed = append(result.Closed, expired)
			continue
		}
		if err != nil {
			result.Skipped++
			slog.Warn("paper: price lookup failed, retrying next pass",
				"trade_id", trade.ID, "symbol", trade.Symbol, "err", err)
			continue
		}

		marked, err := pe.Monitor(ctx, trade, opt, und)
		if err != nil {
			result.Skipped++
			slog.Warn("paper: error marking trade", "trade_id", trade.ID, "err", err)
			continue
		}
		result.Marked++

		reason, ok := pe.exitReason(marked, pe.now())
		if !ok {
			result.Open = append(result.Open, marked)
			continue
		}

		closed, err := pe.Exit(ctx, marked, opt, und, reason)
		if err != nil {
			slog.Warn("paper: error closing trade", "trade_id", trade.ID, "reason", string(reason), "err", err)
			if !errors.Is(err, domain.ErrTradeNotOpen) {
				result.Open = append(result.Open, marked)
			}
			continue
		}
		result.Closed = append(result.Closed, closed)
	}

	slog.Debug("paper: monitor pass complete",
		"marked", result.Marked,
		"closed", len(result.Closed),
		"skipped", result.Skipped,
	)
	return result
}

// exitReason evaluates the auto-exit policy. The first matching rule wins:
// time limit, then contract expiry, then the optional stop-loss and take-profit.
func (pe *Engine) exitReason(trade domain.PaperTrade, now time.Time) (domain.ExitReason, bool) {
	if trade.Elapsed(now) >= pe.cfg.TimeLimit {
		return domain.ExitTimeLimit, true
	}
	if trade.DaysToExpiration(now) <= 0 {
		return domain.ExitExpired, true
	}
	if pe.cfg.StopLossPercent > 0 && trade.UnrealizedPnLPercent <= -pe.cfg.StopLossPercent {
		return domain.ExitStopLoss, true
	}
	if pe.cfg.TakeProfitPercent > 0 && trade.UnrealizedPnLPercent >= pe.cfg.TakeProfitPercent {
		return domain.ExitTakeProfit, true
	}
	return "", false
}

// ExpireTrade closes a trade whose contract has already expired.
func (pe *Engine) ExpireTrade(ctx context.Context, trade domain.PaperTrade, exitPrice, underlyingPrice float64) (domain.PaperTrade, error) {
	if dte := trade.DaysToExpiration(pe.now()); dte > 0 {
		return trade, fmt.Errorf("paper.ExpireTrade: trade %d has %d days left", trade.ID, dte)
	}
	return pe.Exit(ctx, trade, exitPrice, underlyingPrice, domain.ExitExpired)
}

// lastKnownPrices devuelve el último mark, o la entrada si nunca se marcó.
func lastKnownPrices(trade domain.PaperTrade) (float64, float64) {
	if trade.LastMarkedAt == nil || trade.LastPrice <= 0 {
		return trade.EntryPrice, trade.EntryUnderlyingPrice
	}
	return trade.LastPrice, trade.LastUnderlyingPrice
}
