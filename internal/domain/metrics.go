package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Funciones puras para las métricas derivadas de una cotización de opción.
// Ninguna hace I/O; los inputs degenerados devuelven 0 en lugar de NaN.

// DaysToExpiration returns the calendar-day difference between the expiration date
// and now, evaluated in the expiration's location. Negative once the contract expired.
func DaysToExpiration(expiration, now time.Time) int {
	n := now.In(expiration.Location())
	exp := time.Date(expiration.Year(), expiration.Month(), expiration.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	return int(exp.Sub(today).Hours() / 24)
}

// Premium is the dollar value traded: last × volume × multiplier.
// A non-positive multiplier falls back to DefaultMultiplier.
func Premium(last float64, volume int64, multiplier int) float64 {
	if multiplier <= 0 {
		multiplier = DefaultMultiplier
	}
	return last * float64(volume) * float64(multiplier)
}

// MidPrice returns the bid/ask average, or 0 if either side is not positive.
func MidPrice(bid, ask float64) float64 {
	if bid <= 0 || ask <= 0 {
		return 0
	}
	return (bid + ask) / 2
}

// BidAskSpreadPercent returns (ask-bid)/mid × 100, or 0 if either side is not positive.
func BidAskSpreadPercent(bid, ask float64) float64 {
	mid := MidPrice(bid, ask)
	if mid == 0 {
		return 0
	}
	return (ask - bid) / mid * 100
}

// Moneyness returns the signed distance between strike and underlying as a percentage
// of the underlying. Positive means out-of-the-money for both calls and puts.
func Moneyness(strike, underlying float64, t OptionType) float64 {
	if underlying <= 0 {
		return 0
	}
	if t == OptionPut {
		return (underlying - strike) / underlying * 100
	}
	return (strike - underlying) / underlying * 100
}

// CategorizeMoneyness buckets a moneyness percentage. The checks run in order, so
// -10 is itm (not deep_itm), -2 and 2 are atm and 10 is otm.
func CategorizeMoneyness(pct float64) MoneynessCategory {
	switch {
	case pct < -10:
		return DeepITM
	case pct < -2:
		return ITM
	case math.Abs(pct) <= 2:
		return ATM
	case pct <= 10:
		return OTM
	default:
		return DeepOTM
	}
}

// PnLResult is the dollar and percent P/L of a position, both rounded to 2 decimals.
type PnLResult struct {
	PnL        float64
	PnLPercent float64
}

// PnL computes the P/L of a long position between entry and exit.
// An entry price <= 0 has no defined percentage and returns ErrZeroEntryPrice.
func PnL(entry, exit float64, quantity, multiplier int) (PnLResult, error) {
	if entry <= 0 {
		return PnLResult{}, fmt.Errorf("domain.PnL: entry %.4f: %w", entry, ErrZeroEntryPrice)
	}
	if multiplier <= 0 {
		multiplier = DefaultMultiplier
	}
	diff := exit - entry
	return PnLResult{
		PnL:        Round2(diff * float64(quantity) * float64(multiplier)),
		PnLPercent: Round2(diff / entry * 100),
	}, nil
}

// Round2 rounds half away from zero to 2 decimal places. NaN and ±Inf collapse to 0.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
