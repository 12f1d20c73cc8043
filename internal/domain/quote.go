package domain

import "time"

// OptionType is the right carried by an option contract.
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// Valid reports whether t is call or put.
func (t OptionType) Valid() bool {
	return t == OptionCall || t == OptionPut
}

// InstrumentKind is the security type reported by the market-data API.
type InstrumentKind string

const (
	KindOption InstrumentKind = "option"
	KindStock  InstrumentKind = "stock"
	KindETF    InstrumentKind = "etf"
)

// IsUnderlying reports whether k is a kind we accept as the underlying of a signal.
func (k InstrumentKind) IsUnderlying() bool {
	return k == KindStock || k == KindETF
}

// DefaultMultiplier is the contract size assumed when the API does not report one.
const DefaultMultiplier = 100

// Greeks are the model values the API attaches to an option quote.
// Any of them may be missing.
type Greeks struct {
	Delta      *float64
	Gamma      *float64
	Theta      *float64
	Vega       *float64
	Rho        *float64
	ImpliedVol *float64
}

// OptionQuote is an immutable snapshot of a single option contract.
// Pointer fields are nil when the API did not report them.
type OptionQuote struct {
	Underlying   string
	Symbol       string
	Kind         InstrumentKind
	Type         OptionType // empty when missing
	Strike       *float64
	Expiration   *time.Time
	Volume       *int64
	OpenInterest *int64
	Last         *float64
	Bid          *float64
	Ask          *float64
	BidSize      *int64
	AskSize      *int64
	Multiplier   int // 0 = DefaultMultiplier
	Greeks       Greeks
	QuotedAt     time.Time
}

// ContractMultiplier returns the quote's multiplier, falling back to DefaultMultiplier.
func (q OptionQuote) ContractMultiplier() int {
	if q.Multiplier <= 0 {
		return DefaultMultiplier
	}
	return q.Multiplier
}

// UnderlyingQuote is an immutable snapshot of the stock or ETF behind an option chain.
type UnderlyingQuote struct {
	Ticker        string
	Kind          InstrumentKind
	Last          float64
	Change        float64
	ChangePercent float64
	QuotedAt      time.Time
}

// Float returns a pointer to v. Used to build quotes with optional fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int64) *int64 { return &v }

// Time returns a pointer to t.
func Time(t time.Time) *time.Time { return &t }
