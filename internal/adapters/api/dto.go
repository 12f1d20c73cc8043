package api

import (
	"time"

	"github.com/alejandrodnm/flowscan/internal/domain"
)

type greeksJSON struct {
	Delta      *float64 `json:"delta,omitempty"`
	Gamma      *float64 `json:"gamma,omitempty"`
	Theta      *float64 `json:"theta,omitempty"`
	Vega       *float64 `json:"vega,omitempty"`
	Rho        *float64 `json:"rho,omitempty"`
	ImpliedVol *float64 `json:"implied_vol,omitempty"`
}

type signalJSON struct {
	ID                int64      `json:"id"`
	DetectedAt        time.Time  `json:"detected_at"`
	Underlying        string     `json:"underlying"`
	Symbol            string     `json:"symbol"`
	Type              string     `json:"option_type"`
	Strike            float64    `json:"strike"`
	Expiration        string     `json:"expiration"`
	UnderlyingPrice   float64    `json:"underlying_price"`
	Volume            int64      `json:"volume"`
	OpenInterest      int64      `json:"open_interest"`
	Last              float64    `json:"last"`
	Bid               float64    `json:"bid"`
	Ask               float64    `json:"ask"`
	Greeks            greeksJSON `json:"greeks"`
	DTE               int        `json:"dte"`
	Premium           float64    `json:"premium"`
	VolumeOIRatio     float64    `json:"volume_oi_ratio"`
	SpreadPercent     float64    `json:"spread_percent"`
	MoneynessPercent  float64    `json:"moneyness_percent"`
	MoneynessCategory string     `json:"moneyness_category"`
	Strength          string     `json:"strength"`
	PreferredOTM      bool       `json:"preferred_otm"`
}

type tradeJSON struct {
	ID                   int64      `json:"id"`
	SignalID             int64      `json:"signal_id"`
	Symbol               string     `json:"symbol"`
	Underlying           string     `json:"underlying"`
	Type                 string     `json:"option_type"`
	Expiration           string     `json:"expiration"`
	Direction            string     `json:"direction"`
	Quantity             int        `json:"quantity"`
	EntryPrice           float64    `json:"entry_price"`
	EntryUnderlyingPrice float64    `json:"entry_underlying_price"`
	EntryTime            time.Time  `json:"entry_time"`
	Status               string     `json:"status"`
	LastPrice            float64    `json:"last_price"`
	UnrealizedPnL        float64    `json:"unrealized_pnl"`
	UnrealizedPnLPercent float64    `json:"unrealized_pnl_percent"`
	LastMarkedAt         *time.Time `json:"last_marked_at,omitempty"`
	MaxPnL               *float64   `json:"max_pnl,omitempty"`
	MinPnL               *float64   `json:"min_pnl,omitempty"`
	ExitPrice            *float64   `json:"exit_price,omitempty"`
	ExitTime             *time.Time `json:"exit_time,omitempty"`
	ExitReason           string     `json:"exit_reason,omitempty"`
	PnL                  *float64   `json:"pnl,omitempty"`
	PnLPercent           *float64   `json:"pnl_percent,omitempty"`
}

type performanceJSON struct {
	TotalTrades   int     `json:"total_trades"`
	OpenTrades    int     `json:"open_trades"`
	ClosedTrades  int     `json:"closed_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	TotalPnL      float64 `json:"total_pnl"`
	AvgPnL        float64 `json:"avg_pnl"`
	BestTrade     float64 `json:"best_trade"`
	WorstTrade    float64 `json:"worst_trade"`
}

type cycleJSON struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	DurationMs   int64     `json:"duration_ms"`
	Tickers      int       `json:"tickers"`
	Quotes       int       `json:"quotes"`
	Signals      int       `json:"signals"`
	Duplicates   int       `json:"duplicates"`
	Notified     int       `json:"notified"`
	TradesOpened int       `json:"trades_opened"`
	TradesClosed int       `json:"trades_closed"`
	FetchErrors  int       `json:"fetch_errors"`
}

const dateLayout = "2006-01-02"

func toSignalJSON(s domain.Signal) signalJSON {
	return signalJSON{
		ID:              s.ID,
		DetectedAt:      s.DetectedAt,
		Underlying:      s.Underlying,
		Symbol:          s.Symbol,
		Type:            string(s.Type),
		Strike:          s.Strike,
		Expiration:      s.Expiration.Format(dateLayout),
		UnderlyingPrice: s.UnderlyingPrice,
		Volume:          s.Volume,
		OpenInterest:    s.OpenInterest,
		Last:            s.Last,
		Bid:             s.Bid,
		Ask:             s.Ask,
		Greeks: greeksJSON{
			Delta:      s.Greeks.Delta,
			Gamma:      s.Greeks.Gamma,
			Theta:      s.Greeks.Theta,
			Vega:       s.Greeks.Vega,
			Rho:        s.Greeks.Rho,
			ImpliedVol: s.Greeks.ImpliedVol,
		},
		DTE:               s.DTE,
		Premium:           s.Premium,
		VolumeOIRatio:     s.VolumeOIRatio,
		SpreadPercent:     s.SpreadPercent,
		MoneynessPercent:  s.MoneynessPercent,
		MoneynessCategory: string(s.MoneynessCategory),
		Strength:          string(s.Strength),
		PreferredOTM:      s.PreferredOTM,
	}
}

func toTradeJSON(t domain.PaperTrade) tradeJSON {
	return tradeJSON{
		ID:                   t.ID,
		SignalID:             t.SignalID,
		Symbol:               t.Symbol,
		Underlying:           t.Underlying,
		Type:                 string(t.Type),
		Expiration:           t.Expiration.Format(dateLayout),
		Direction:            string(t.Direction),
		Quantity:             t.Quantity,
		EntryPrice:           t.EntryPrice,
		EntryUnderlyingPrice: t.EntryUnderlyingPrice,
		EntryTime:            t.EntryTime,
		Status:               string(t.Status),
		LastPrice:            t.LastPrice,
		UnrealizedPnL:        t.UnrealizedPnL,
		UnrealizedPnLPercent: t.UnrealizedPnLPercent,
		LastMarkedAt:         t.LastMarkedAt,
		MaxPnL:               t.MaxPnL,
		MinPnL:               t.MinPnL,
		ExitPrice:            t.ExitPrice,
		ExitTime:             t.ExitTime,
		ExitReason:           string(t.ExitReason),
		PnL:                  t.PnL,
		PnLPercent:           t.PnLPercent,
	}
}

func toPerformanceJSON(s domain.PerformanceSummary) performanceJSON {
	return performanceJSON{
		TotalTrades:   s.TotalTrades,
		OpenTrades:    s.OpenTrades,
		ClosedTrades:  s.ClosedTrades,
		WinningTrades: s.WinningTrades,
		LosingTrades:  s.LosingTrades,
		WinRate:       s.WinRate,
		TotalPnL:      s.TotalPnL,
		AvgPnL:        s.AvgPnL,
		BestTrade:     s.BestTrade,
		WorstTrade:    s.WorstTrade,
	}
}

func toCycleJSON(c domain.ScanCycle) cycleJSON {
	return cycleJSON{
		ID:           c.ID,
		StartedAt:    c.StartedAt,
		DurationMs:   c.Duration.Milliseconds(),
		Tickers:      c.Tickers,
		Quotes:       c.Quotes,
		Signals:      c.Signals,
		Duplicates:   c.Duplicates,
		Notified:     c.Notified,
		TradesOpened: c.TradesOpened,
		TradesClosed: c.TradesClosed,
		FetchErrors:  c.FetchErrors,
	}
}
