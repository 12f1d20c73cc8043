package domain

import (
	"fmt"
	"time"
)

// TradeStatus represents the lifecycle of a paper trade.
type TradeStatus string

const (
	TradeOpen    TradeStatus = "open"
	TradeClosed  TradeStatus = "closed"
	TradeExpired TradeStatus = "expired"
)

// Terminal reports whether no further transition is allowed from s.
func (s TradeStatus) Terminal() bool {
	return s == TradeClosed || s == TradeExpired
}

// ExitReason explains why a paper trade was closed.
type ExitReason string

const (
	ExitManual     ExitReason = "manual"
	ExitTimeLimit  ExitReason = "time_limit"
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTakeProfit ExitReason = "take_profit"
	ExitExpired    ExitReason = "expired"
)

// Valid reports whether r is one of the known exit reasons.
func (r ExitReason) Valid() bool {
	switch r {
	case ExitManual, ExitTimeLimit, ExitStopLoss, ExitTakeProfit, ExitExpired:
		return true
	}
	return false
}

// Direction of a simulated position. Only long is simulated today.
type Direction string

const DirectionLong Direction = "long"

// PaperTrade is a simulated position opened from a signal.
// It is open until Close is applied once; after that every transition fails with ErrTradeNotOpen.
type PaperTrade struct {
	ID       int64
	SignalID int64

	Symbol     string
	Underlying string
	Type       OptionType
	Expiration time.Time
	Multiplier int

	Direction            Direction
	Quantity             int
	EntryPrice           float64
	EntryUnderlyingPrice float64
	EntryTime            time.Time
	Status               TradeStatus

	// Último mark del monitor
	LastPrice            float64
	LastUnderlyingPrice  float64
	UnrealizedPnL        float64
	UnrealizedPnLPercent float64
	LastMarkedAt         *time.Time

	// Extremos observados; nil hasta el primer mark
	MaxPnL        *float64
	MinPnL        *float64
	MaxPnLPercent *float64
	MinPnLPercent *float64

	ExitPrice           *float64
	ExitUnderlyingPrice *float64
	ExitTime            *time.Time
	ExitReason          ExitReason
	PnL                 *float64
	PnLPercent          *float64
}

// NewPaperTrade builds an open long trade from a persisted signal.
func NewPaperTrade(sig Signal, quantity int, at time.Time) (PaperTrade, error) {
	if !sig.Persisted() {
		return PaperTrade{}, fmt.Errorf("domain.NewPaperTrade: %s: %w", sig.Symbol, ErrSignalNotPersisted)
	}
	entry := sig.EntryPrice()
	if entry <= 0 {
		return PaperTrade{}, fmt.Errorf("domain.NewPaperTrade: %s: %w", sig.Symbol, ErrNoEntryPrice)
	}
	if quantity <= 0 {
		quantity = 1
	}
	multiplier := sig.Multiplier
	if multiplier <= 0 {
		multiplier = DefaultMultiplier
	}
	return PaperTrade{
		SignalID:             sig.ID,
		Symbol:               sig.Symbol,
		Underlying:           sig.Underlying,
		Type:                 sig.Type,
		Expiration:           sig.Expiration,
		Multiplier:           multiplier,
		Direction:            DirectionLong,
		Quantity:             quantity,
		EntryPrice:           entry,
		EntryUnderlyingPrice: sig.UnderlyingPrice,
		EntryTime:            at,
		Status:               TradeOpen,
	}, nil
}

// IsOpen reports whether the trade still accepts marks and exits.
func (t PaperTrade) IsOpen() bool {
	return t.Status == TradeOpen
}

// Elapsed returns the wall-clock time since entry.
func (t PaperTrade) Elapsed(now time.Time) time.Duration {
	return now.Sub(t.EntryTime)
}

// DaysToExpiration returns the DTE of the traded contract.
func (t PaperTrade) DaysToExpiration(now time.Time) int {
	return DaysToExpiration(t.Expiration, now)
}

// Mark returns a copy of the trade re-valued at the given prices, with the running
// extrema updated. The receiver is left untouched.
func (t PaperTrade) Mark(optionPrice, underlyingPrice float64, at time.Time) (PaperTrade, error) {
	if !t.IsOpen() {
		return t, fmt.Errorf("domain.PaperTrade.Mark: trade %d is %s: %w", t.ID, t.Status, ErrTradeNotOpen)
	}
	res, err := PnL(t.EntryPrice, optionPrice, t.Quantity, t.Multiplier)
	if err != nil {
		return t, fmt.Errorf("domain.PaperTrade.Mark: trade %d: %w", t.ID, err)
	}

	next := t
	next.LastPrice = optionPrice
	next.LastUnderlyingPrice = underlyingPrice
	next.UnrealizedPnL = res.PnL
	next.UnrealizedPnLPercent = res.PnLPercent
	next.LastMarkedAt = Time(at)
	next.MaxPnL = maxOf(t.MaxPnL, res.PnL)
	next.MinPnL = minOf(t.MinPnL, res.PnL)
	next.MaxPnLPercent = maxOf(t.MaxPnLPercent, res.PnLPercent)
	next.MinPnLPercent = minOf(t.MinPnLPercent, res.PnLPercent)
	return next, nil
}

// Close returns a copy of the trade in its terminal state. ExitExpired moves the
// trade to expired, every other reason to closed.
func (t PaperTrade) Close(exitPrice, underlyingPrice float64, reason ExitReason, at time.Time) (PaperTrade, error) {
	if !t.IsOpen() {
		return t, fmt.Errorf("domain.PaperTrade.Close: trade %d is %s: %w", t.ID, t.Status, ErrTradeNotOpen)
	}
	if !reason.Valid() {
		return t, fmt.Errorf("domain.PaperTrade.Close: %q: %w", reason, ErrInvalidExitReason)
	}
	res, err := PnL(t.EntryPrice, exitPrice, t.Quantity, t.Multiplier)
	if err != nil {
		return t, fmt.Errorf("domain.PaperTrade.Close: trade %d: %w", t.ID, err)
	}

	next := t
	next.ExitPrice = Float(exitPrice)
	next.ExitUnderlyingPrice = Float(underlyingPrice)
	next.ExitTime = Time(at)
	next.ExitReason = reason
	next.PnL = Float(res.PnL)
	next.PnLPercent = Float(res.PnLPercent)
	next.Status = TradeClosed
	if reason == ExitExpired {
		next.Status = TradeExpired
	}
	return next, nil
}

func maxOf(prev *float64, v float64) *float64 {
	if prev == nil || v > *prev {
		return Float(v)
	}
	return prev
}

func minOf(prev *float64, v float64) *float64 {
	if prev == nil || v < *prev {
		return Float(v)
	}
	return prev
}
