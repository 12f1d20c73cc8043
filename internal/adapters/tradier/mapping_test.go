package tradier

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alejandrodnm/flowscan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mapNow = time.Date(2025, 9, 1, 15, 0, 0, 0, time.UTC)

func TestOneOrMany_Shapes(t *testing.T) {
	var one, many, null oneOrMany[string]
	require.NoError(t, json.Unmarshal([]byte(`"2025-09-19"`), &one))
	require.NoError(t, json.Unmarshal([]byte(`["a","b"]`), &many))
	require.NoError(t, json.Unmarshal([]byte(`null`), &null))

	assert.Equal(t, oneOrMany[string]{"2025-09-19"}, one)
	assert.Len(t, many, 2)
	assert.Empty(t, null)
}

func TestMapOptionQuote_FallsBackToSymbol(t *testing.T) {
	// sin strike, tipo, expiración ni underlying: todo sale del símbolo OCC
	q := mapOptionQuote(rawQuote{Symbol: "SPY251017P00550000", Type: "option"}, mapNow)

	assert.Equal(t, "SPY", q.Underlying)
	assert.Equal(t, domain.OptionPut, q.Type)
	require.NotNil(t, q.Strike)
	assert.Equal(t, 550.0, *q.Strike)
	require.NotNil(t, q.Expiration)
	assert.Equal(t, time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC), *q.Expiration)
	assert.Equal(t, mapNow, q.QuotedAt)
}

func TestMapOptionQuote_UnparseableSymbolLeavesGaps(t *testing.T) {
	q := mapOptionQuote(rawQuote{Symbol: "WEIRD", Type: "option", OptionType: "straddle", RootSymbol: "WRD"}, mapNow)
	assert.Equal(t, "WRD", q.Underlying)
	assert.Equal(t, domain.OptionType(""), q.Type)
	assert.Nil(t, q.Strike)
	assert.Nil(t, q.Expiration)
}

func TestMapOptionQuote_APIFieldsWin(t *testing.T) {
	strike := 181.0
	q := mapOptionQuote(rawQuote{
		Symbol:         "NVDA250919C00180000",
		Type:           "OPTION",
		OptionType:     "CALL",
		Underlying:     "NVDA",
		Strike:         &strike,
		ExpirationDate: "2025-09-20",
	}, mapNow)

	assert.Equal(t, domain.KindOption, q.Kind)
	assert.Equal(t, domain.OptionCall, q.Type)
	assert.Equal(t, 181.0, *q.Strike)
	assert.Equal(t, 20, q.Expiration.Day())
}

func TestOptionMark(t *testing.T) {
	assert.InDelta(t, 2.0, optionMark(rawQuote{Bid: domain.Float(1.9), Ask: domain.Float(2.1), Last: domain.Float(5)}), 1e-9)
	assert.Equal(t, 5.0, optionMark(rawQuote{Bid: domain.Float(0), Ask: domain.Float(2.1), Last: domain.Float(5)}))
	assert.Equal(t, 0.0, optionMark(rawQuote{}))
}
