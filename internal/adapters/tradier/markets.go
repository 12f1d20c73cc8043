package tradier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/alejandrodnm/flowscan/internal/domain"
)

// ErrUnknownSymbol is returned when the API does not recognise a requested symbol.
var ErrUnknownSymbol = errors.New("tradier: unknown symbol")

// fetchQuotes devuelve los quotes crudos de varios símbolos indexados por símbolo.
func (c *Client) fetchQuotes(ctx context.Context, symbols ...string) (map[string]rawQuote, error) {
	params := url.Values{}
	params.Set("symbols", strings.Join(symbols, ","))
	params.Set("greeks", "false")

	var resp quotesResponse
	if err := c.get(ctx, "/markets/quotes", params, &resp); err != nil {
		return nil, err
	}

	out := make(map[string]rawQuote, len(resp.Quotes.Quote))
	for _, q := range resp.Quotes.Quote {
		out[q.Symbol] = q
	}
	return out, nil
}

// FetchUnderlyingQuote devuelve la cotización del subyacente.
func (c *Client) FetchUnderlyingQuote(ctx context.Context, ticker string) (domain.UnderlyingQuote, error) {
	quotes, err := c.fetchQuotes(ctx, ticker)
	if err != nil {
		return domain.UnderlyingQuote{}, fmt.Errorf("tradier.FetchUnderlyingQuote: %s: %w", ticker, err)
	}
	raw, ok := quotes[ticker]
	if !ok {
		return domain.UnderlyingQuote{}, fmt.Errorf("tradier.FetchUnderlyingQuote: %s: %w", ticker, ErrUnknownSymbol)
	}
	return mapUnderlying(raw, c.now()), nil
}

// FetchExpirations devuelve las fechas de expiración listadas, en orden ascendente.
func (c *Client) FetchExpirations(ctx context.Context, ticker string) ([]time.Time, error) {
	params := url.Values{}
	params.Set("symbol", ticker)
	params.Set("includeAllRoots", "true")

	var resp expirationsResponse
	if err := c.get(ctx, "/markets/options/expirations", params, &resp); err != nil {
		return nil, fmt.Errorf("tradier.FetchExpirations: %s: %w", ticker, err)
	}
	if resp.Expirations == nil {
		return nil, nil
	}

	dates := make([]time.Time, 0, len(resp.Expirations.Date))
	for _, d := range resp.Expirations.Date {
		t, err := time.Parse(expirationLayout, d)
		if err != nil {
			slog.Debug("tradier: bad expiration date", "ticker", ticker, "date", d)
			continue
		}
		dates = append(dates, t)
	}
	return dates, nil
}

// FetchOptionChain devuelve la cadena de un ticker para una expiración. Con
// expiration nil recorre las expiraciones dentro de la ventana configurada;
// una cadena que falla se omite y sólo es error si fallan todas.
func (c *Client) FetchOptionChain(ctx context.Context, ticker string, expiration *time.Time) ([]domain.OptionQuote, error) {
	if expiration != nil {
		quotes, err := c.fetchChain(ctx, ticker, *expiration)
		if err != nil {
			return nil, fmt.Errorf("tradier.FetchOptionChain: %w", err)
		}
		return quotes, nil
	}

	all, err := c.FetchExpirations(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("tradier.FetchOptionChain: %w", err)
	}
	expirations := c.inWindow(all)

	var (
		quotes  []domain.OptionQuote
		lastErr error
		failed  int
	)
	for _, exp := range expirations {
		chain, err := c.fetchChain(ctx, ticker, exp)
		if err != nil {
			failed++
			lastErr = err
			slog.Warn("tradier: chain fetch failed", "ticker", ticker, "expiration", exp.Format(expirationLayout), "err", err)
			continue
		}
		quotes = append(quotes, chain...)
	}
	if len(expirations) > 0 && failed == len(expirations) {
		return nil, fmt.Errorf("tradier.FetchOptionChain: %s: all %d chains failed: %w", ticker, failed, lastErr)
	}
	return quotes, nil
}

// LookupPrices resuelve el mark de la opción y el last del subyacente de un trade
// en una sola llamada.
func (c *Client) LookupPrices(ctx context.Context, trade domain.PaperTrade) (float64, float64, error) {
	quotes, err := c.fetchQuotes(ctx, trade.Symbol, trade.Underlying)
	if err != nil {
		return 0, 0, fmt.Errorf("tradier.LookupPrices: %w", err)
	}
	opt, ok := quotes[trade.Symbol]
	if !ok {
		return 0, 0, fmt.Errorf("tradier.LookupPrices: %s: %w", trade.Symbol, ErrUnknownSymbol)
	}
	mark := optionMark(opt)
	if mark <= 0 {
		return 0, 0, fmt.Errorf("tradier.LookupPrices: %s: no bid/ask or last", trade.Symbol)
	}

	und := trade.LastUnderlyingPrice
	if u, ok := quotes[trade.Underlying]; ok && deref(u.Last) > 0 {
		und = deref(u.Last)
	}
	return mark, und, nil
}

func (c *Client) fetchChain(ctx context.Context, ticker string, exp time.Time) ([]domain.OptionQuote, error) {
	params := url.Values{}
	params.Set("symbol", ticker)
	params.Set("expiration", exp.Format(expirationLayout))
	params.Set("greeks", "true")

	var resp chainResponse
	if err := c.get(ctx, "/markets/options/chains", params, &resp); err != nil {
		return nil, fmt.Errorf("chain %s %s: %w", ticker, exp.Format(expirationLayout), err)
	}
	if resp.Options == nil {
		return nil, nil
	}
	return mapOptionQuotes(resp.Options.Option, c.now()), nil
}

// inWindow keeps the unexpired dates within WindowDays, capped at MaxExpirations.
func (c *Client) inWindow(dates []time.Time) []time.Time {
	now := c.now()
	out := make([]time.Time, 0, c.cfg.MaxExpirations)
	for _, d := range dates {
		dte := domain.DaysToExpiration(d, now)
		if dte < 0 || dte > c.cfg.WindowDays {
			continue
		}
		out = append(out, d)
		if len(out) == c.cfg.MaxExpirations {
			break
		}
	}
	return out
}
