package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/flowscan/internal/domain"
)

// MarketData obtiene cotizaciones de la API del broker.
type MarketData interface {
	// FetchUnderlyingQuote devuelve la cotización del subyacente (stock o ETF).
	FetchUnderlyingQuote(ctx context.Context, ticker string) (domain.UnderlyingQuote, error)

	// FetchOptionChain devuelve las opciones de un ticker. Con expiration nil
	// el adapter recorre las expiraciones dentro de su ventana configurada.
	FetchOptionChain(ctx context.Context, ticker string, expiration *time.Time) ([]domain.OptionQuote, error)
}

// PriceLookup resolves current prices for an open paper trade.
type PriceLookup interface {
	// LookupPrices returns the option mark price and the underlying last price.
	LookupPrices(ctx context.Context, trade domain.PaperTrade) (optionPrice, underlyingPrice float64, err error)
}
