package detector

import (
	"log/slog"
	"time"

	"github.com/alejandrodnm/flowscan/internal/domain"
)

// Input-rejection reasons that come before the threshold rules.
const (
	RejectNotOption     RejectReason = "not_an_option"
	RejectMissingType   RejectReason = "missing_option_type"
	RejectBadUnderlying RejectReason = "underlying_not_stock_or_etf"
	RejectMissingField  RejectReason = "missing_required_field"
)

// Detector turns option quotes into signals against one underlying quote.
type Detector struct {
	classifier *Classifier
	now        func() time.Time
}

// New crea un Detector con los umbrales dados.
func New(cfg Thresholds) *Detector {
	return &Detector{classifier: NewClassifier(cfg), now: time.Now}
}

// WithClock replaces the time source used for DTE. Intended for tests and replays.
func (d *Detector) WithClock(now func() time.Time) *Detector {
	d.now = now
	return d
}

// Classifier exposes the underlying threshold rules.
func (d *Detector) Classifier() *Classifier {
	return d.classifier
}

// Evaluate returns a fully populated signal when the quote is unusual.
// Rejection is not an error: the reason is only logged at debug level.
func (d *Detector) Evaluate(opt domain.OptionQuote, und domain.UnderlyingQuote) (domain.Signal, bool) {
	sig, reason := d.evaluate(opt, und)
	if reason != RejectNone {
		slog.Debug("detector: quote rejected", "symbol", opt.Symbol, "reason", string(reason))
		return domain.Signal{}, false
	}
	return sig, true
}

// EvaluateBatch applies Evaluate to every quote, preserving input order and
// dropping rejected quotes. No deduplication happens here.
func (d *Detector) EvaluateBatch(opts []domain.OptionQuote, und domain.UnderlyingQuote) []domain.Signal {
	signals := make([]domain.Signal, 0)
	for _, opt := range opts {
		if sig, ok := d.Evaluate(opt, und); ok {
			signals = append(signals, sig)
		}
	}
	return signals
}

func (d *Detector) evaluate(opt domain.OptionQuote, und domain.UnderlyingQuote) (domain.Signal, RejectReason) {
	if opt.Kind != domain.KindOption {
		return domain.Signal{}, RejectNotOption
	}
	if !opt.Type.Valid() {
		return domain.Signal{}, RejectMissingType
	}
	if !und.Kind.IsUnderlying() {
		return domain.Signal{}, RejectBadUnderlying
	}
	if opt.Expiration == nil || opt.Strike == nil || opt.Volume == nil ||
		opt.OpenInterest == nil || opt.Underlying == "" {
		return domain.Signal{}, RejectMissingField
	}

	volume := *opt.Volume
	oi := *opt.OpenInterest
	strike := *opt.Strike
	// Precios ausentes → 0 (sentinel); el criterio de premium los descarta
	last := valueOr(opt.Last)
	bid := valueOr(opt.Bid)
	ask := valueOr(opt.Ask)
	mult := opt.ContractMultiplier()

	dte := domain.DaysToExpiration(*opt.Expiration, d.now())
	premium := domain.Premium(last, volume, mult)

	if ok, reason := d.classifier.MeetsUnusualCriteria(volume, oi, premium, dte); !ok {
		return domain.Signal{}, reason
	}

	ratio := float64(volume) / float64(oi)
	moneyness := domain.Moneyness(strike, und.Last, opt.Type)

	return domain.Signal{
		Underlying:        opt.Underlying,
		Symbol:            opt.Symbol,
		Type:              opt.Type,
		Strike:            strike,
		Expiration:        *opt.Expiration,
		Multiplier:        mult,
		UnderlyingPrice:   domain.Round2(und.Last),
		Volume:            volume,
		OpenInterest:      oi,
		Last:              domain.Round2(last),
		Bid:               domain.Round2(bid),
		Ask:               domain.Round2(ask),
		Greeks:            opt.Greeks,
		QuotedAt:          opt.QuotedAt,
		DTE:               dte,
		Premium:           domain.Round2(premium),
		VolumeOIRatio:     domain.Round2(ratio),
		SpreadPercent:     domain.Round2(domain.BidAskSpreadPercent(bid, ask)),
		MoneynessPercent:  domain.Round2(moneyness),
		MoneynessCategory: domain.CategorizeMoneyness(moneyness),
		Strength:          d.classifier.ClassifyStrength(ratio, premium, dte, moneyness),
		PreferredOTM:      d.classifier.PrefersOTM(moneyness),
	}, RejectNone
}

func valueOr(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
