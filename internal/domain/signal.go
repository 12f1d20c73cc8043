package domain

import "time"

// Strength is the conviction tier assigned to a detected signal.
type Strength string

const (
	StrengthLow    Strength = "low"
	StrengthMedium Strength = "medium"
	StrengthHigh   Strength = "high"
)

// Rank orders strengths so callers can compare them (low < medium < high).
func (s Strength) Rank() int {
	switch s {
	case StrengthHigh:
		return 3
	case StrengthMedium:
		return 2
	case StrengthLow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is as strong as min.
func (s Strength) AtLeast(min Strength) bool {
	return s.Rank() >= min.Rank()
}

// ParseStrength converts a config string into a Strength. Unknown values map to low.
func ParseStrength(v string) Strength {
	switch Strength(v) {
	case StrengthHigh, StrengthMedium:
		return Strength(v)
	default:
		return StrengthLow
	}
}

// MoneynessCategory buckets the signed moneyness percentage.
type MoneynessCategory string

const (
	DeepITM MoneynessCategory = "deep_itm"
	ITM     MoneynessCategory = "itm"
	ATM     MoneynessCategory = "atm"
	OTM     MoneynessCategory = "otm"
	DeepOTM MoneynessCategory = "deep_otm"
)

// Signal is an option quote flagged as unusual activity, with every derived metric.
// Monetary and ratio values are rounded to 2 decimals.
//
// ID and DetectedAt are zero until storage persists the signal.
type Signal struct {
	ID         int64
	DetectedAt time.Time

	Underlying      string
	Symbol          string
	Type            OptionType
	Strike          float64
	Expiration      time.Time
	Multiplier      int
	UnderlyingPrice float64

	Volume       int64
	OpenInterest int64
	Last         float64
	Bid          float64
	Ask          float64
	Greeks       Greeks
	QuotedAt     time.Time

	DTE               int
	Premium           float64
	VolumeOIRatio     float64
	SpreadPercent     float64
	MoneynessPercent  float64
	MoneynessCategory MoneynessCategory
	Strength          Strength
	PreferredOTM      bool // advisory: moneyness >= the configured preferred OTM percent
}

// Persisted reports whether storage has assigned an identity to the signal.
func (s Signal) Persisted() bool {
	return s.ID > 0
}

// EntryPrice is the price a paper trade would open at: the bid/ask midpoint when
// both sides are valid, otherwise the last traded price.
func (s Signal) EntryPrice() float64 {
	if mid := MidPrice(s.Bid, s.Ask); mid > 0 {
		return mid
	}
	return s.Last
}
