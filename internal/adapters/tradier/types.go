package tradier

import (
	"bytes"
	"encoding/json"
)

// DTOs raw de la API de Tradier. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// oneOrMany decodes fields that Tradier sends as a single object when there is
// one element and as an array otherwise. null decodes to an empty slice.
type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = nil
		return nil
	}
	if data[0] == '[' {
		var many []T
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*o = many
		return nil
	}
	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*o = []T{one}
	return nil
}

// quotesResponse es la respuesta de GET /markets/quotes.
type quotesResponse struct {
	Quotes struct {
		Quote     oneOrMany[rawQuote] `json:"quote"`
		Unmatched *struct {
			Symbol oneOrMany[string] `json:"symbol"`
		} `json:"unmatched_symbols"`
	} `json:"quotes"`
}

// chainResponse es la respuesta de GET /markets/options/chains.
// options llega como null cuando no hay contratos para la expiración.
type chainResponse struct {
	Options *struct {
		Option oneOrMany[rawQuote] `json:"option"`
	} `json:"options"`
}

// expirationsResponse es la respuesta de GET /markets/options/expirations.
type expirationsResponse struct {
	Expirations *struct {
		Date oneOrMany[string] `json:"date"`
	} `json:"expirations"`
}

// rawQuote cubre tanto stocks/ETFs como contratos de opciones.
// Casi todo puede venir null fuera de horario o en contratos sin operar.
type rawQuote struct {
	Symbol           string     `json:"symbol"`
	Description      string     `json:"description"`
	Type             string     `json:"type"` // stock | etf | option | index
	Last             *float64   `json:"last"`
	Change           *float64   `json:"change"`
	ChangePercentage *float64   `json:"change_percentage"`
	Volume           *int64     `json:"volume"`
	Bid              *float64   `json:"bid"`
	Ask              *float64   `json:"ask"`
	BidSize          *int64     `json:"bidsize"`
	AskSize          *int64     `json:"asksize"`
	TradeDate        *int64     `json:"trade_date"` // epoch ms
	Underlying       string     `json:"underlying"`
	RootSymbol       string     `json:"root_symbol"`
	Strike           *float64   `json:"strike"`
	OpenInterest     *int64     `json:"open_interest"`
	ContractSize     *int       `json:"contract_size"`
	ExpirationDate   string     `json:"expiration_date"` // YYYY-MM-DD
	OptionType       string     `json:"option_type"`     // call | put
	Greeks           *rawGreeks `json:"greeks"`
}

// rawGreeks viene sólo con greeks=true y puede ser null.
type rawGreeks struct {
	Delta *float64 `json:"delta"`
	Gamma *float64 `json:"gamma"`
	Theta *float64 `json:"theta"`
	Vega  *float64 `json:"vega"`
	Rho   *float64 `json:"rho"`
	MidIV *float64 `json:"mid_iv"`
}
