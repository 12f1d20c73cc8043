package tradier

import (
	"strings"
	"time"

	"github.com/alejandrodnm/flowscan/internal/domain"
)

const expirationLayout = "2006-01-02"

// mapUnderlying convierte un quote de stock/ETF a domain.UnderlyingQuote.
// Los campos null quedan en 0.
func mapUnderlying(r rawQuote, now time.Time) domain.UnderlyingQuote {
	return domain.UnderlyingQuote{
		Ticker:        r.Symbol,
		Kind:          domain.InstrumentKind(strings.ToLower(r.Type)),
		Last:          deref(r.Last),
		Change:        deref(r.Change),
		ChangePercent: deref(r.ChangePercentage),
		QuotedAt:      quotedAt(r.TradeDate, now),
	}
}

// mapOptionQuotes convierte una cadena completa preservando el orden de la API.
func mapOptionQuotes(raw []rawQuote, now time.Time) []domain.OptionQuote {
	out := make([]domain.OptionQuote, 0, len(raw))
	for _, r := range raw {
		out = append(out, mapOptionQuote(r, now))
	}
	return out
}

// mapOptionQuote convierte un contrato. Si la API omite strike, tipo o
// expiración, se recuperan del símbolo OCC cuando éste es parseable.
func mapOptionQuote(r rawQuote, now time.Time) domain.OptionQuote {
	q := domain.OptionQuote{
		Underlying:   r.Underlying,
		Symbol:       r.Symbol,
		Kind:         domain.InstrumentKind(strings.ToLower(r.Type)),
		Type:         domain.OptionType(strings.ToLower(r.OptionType)),
		Strike:       r.Strike,
		Volume:       r.Volume,
		OpenInterest: r.OpenInterest,
		Last:         r.Last,
		Bid:          r.Bid,
		Ask:          r.Ask,
		BidSize:      r.BidSize,
		AskSize:      r.AskSize,
		QuotedAt:     quotedAt(r.TradeDate, now),
	}
	if r.ContractSize != nil {
		q.Multiplier = *r.ContractSize
	}
	if r.ExpirationDate != "" {
		if exp, err := time.Parse(expirationLayout, r.ExpirationDate); err == nil {
			q.Expiration = &exp
		}
	}
	if r.Greeks != nil {
		q.Greeks = domain.Greeks{
			Delta:      r.Greeks.Delta,
			Gamma:      r.Greeks.Gamma,
			Theta:      r.Greeks.Theta,
			Vega:       r.Greeks.Vega,
			Rho:        r.Greeks.Rho,
			ImpliedVol: r.Greeks.MidIV,
		}
	}

	if cs, ok := domain.ParseContractSymbol(r.Symbol); ok {
		if q.Underlying == "" {
			q.Underlying = cs.Ticker
		}
		if q.Strike == nil {
			q.Strike = domain.Float(cs.Strike)
		}
		if !q.Type.Valid() {
			q.Type = cs.Type
		}
		if q.Expiration == nil {
			q.Expiration = domain.Time(cs.Expiration())
		}
	}
	if q.Underlying == "" {
		q.Underlying = r.RootSymbol
	}
	if !q.Type.Valid() {
		q.Type = ""
	}
	return q
}

// optionMark es el precio usado para valorar un trade: mid si hay bid y ask, si no last.
func optionMark(r rawQuote) float64 {
	if mid := domain.MidPrice(deref(r.Bid), deref(r.Ask)); mid > 0 {
		return mid
	}
	return deref(r.Last)
}

func quotedAt(tradeDateMs *int64, now time.Time) time.Time {
	if tradeDateMs == nil || *tradeDateMs <= 0 {
		return now
	}
	return time.UnixMilli(*tradeDateMs).UTC()
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
