package tradier_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/flowscan/internal/adapters/tradier"
	"github.com/alejandrodnm/flowscan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 9, 1, 15, 0, 0, 0, time.UTC)

func newTestClient(srv *httptest.Server) *tradier.Client {
	return tradier.NewClient(tradier.Config{
		BaseURL:        srv.URL,
		Token:          "test-token",
		WindowDays:     30,
		MaxExpirations: 2,
		RatePerSec:     1000,
	}).WithClock(func() time.Time { return testNow })
}

const quoteNVDA = `{"quotes":{"quote":{"symbol":"NVDA","type":"stock","last":160.25,"change":-1.5,"change_percentage":-0.93,"volume":1200000,"trade_date":1756738800000}}}`

const chainNVDA = `{"options":{"option":[
 {"symbol":"NVDA250919C00180000","type":"option","underlying":"NVDA","strike":180.0,"option_type":"call",
  "expiration_date":"2025-09-19","volume":1000,"open_interest":100,"last":2.0,"bid":1.95,"ask":2.05,
  "bidsize":10,"asksize":12,"contract_size":100,"greeks":{"delta":0.31,"gamma":0.02,"theta":-0.05,"vega":0.12,"rho":0.01,"mid_iv":0.45}},
 {"symbol":"NVDA250919P00150000","type":"option","underlying":"NVDA","strike":150.0,"option_type":"put",
  "expiration_date":"2025-09-19","volume":null,"open_interest":0,"last":null,"bid":null,"ask":null,"greeks":null}
]}}`

func TestFetchUnderlyingQuote_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/quotes", r.URL.Path)
		assert.Equal(t, "NVDA", r.URL.Query().Get("symbols"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(quoteNVDA))
	}))
	defer srv.Close()

	und, err := newTestClient(srv).FetchUnderlyingQuote(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.Equal(t, "NVDA", und.Ticker)
	assert.Equal(t, domain.KindStock, und.Kind)
	assert.InDelta(t, 160.25, und.Last, 0.0001)
	assert.InDelta(t, -0.93, und.ChangePercent, 0.0001)
	assert.Equal(t, time.UnixMilli(1756738800000).UTC(), und.QuotedAt)
}

func TestFetchUnderlyingQuote_UnknownSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quotes":{"unmatched_symbols":{"symbol":"ZZZZ"}}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchUnderlyingQuote(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, tradier.ErrUnknownSymbol)
}

func TestFetchOptionChain_SingleExpiration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/options/chains", r.URL.Path)
		assert.Equal(t, "2025-09-19", r.URL.Query().Get("expiration"))
		assert.Equal(t, "true", r.URL.Query().Get("greeks"))
		w.Write([]byte(chainNVDA))
	}))
	defer srv.Close()

	exp := time.Date(2025, 9, 19, 0, 0, 0, 0, time.UTC)
	quotes, err := newTestClient(srv).FetchOptionChain(context.Background(), "NVDA", &exp)
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	call := quotes[0]
	assert.Equal(t, domain.KindOption, call.Kind)
	assert.Equal(t, domain.OptionCall, call.Type)
	assert.Equal(t, 180.0, *call.Strike)
	assert.Equal(t, exp, *call.Expiration)
	assert.Equal(t, int64(1000), *call.Volume)
	assert.Equal(t, 100, call.Multiplier)
	assert.Equal(t, 0.45, *call.Greeks.ImpliedVol)

	put := quotes[1]
	assert.Equal(t, domain.OptionPut, put.Type)
	assert.Nil(t, put.Volume)
	assert.Nil(t, put.Last)
	assert.Nil(t, put.Greeks.Delta)
	assert.Equal(t, 0, put.Multiplier)
}

func TestFetchOptionChain_WalksExpirationWindow(t *testing.T) {
	var chains atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/markets/options/expirations":
			// 08-29 vencida, 10-17 fuera de la ventana de 30 días
			w.Write([]byte(`{"expirations":{"date":["2025-08-29","2025-09-05","2025-09-19","2025-09-26","2025-10-17"]}}`))
		case "/markets/options/chains":
			chains.Add(1)
			if r.URL.Query().Get("expiration") == "2025-09-05" {
				w.Write([]byte(`{"options":null}`))
				return
			}
			w.Write([]byte(chainNVDA))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	quotes, err := newTestClient(srv).FetchOptionChain(context.Background(), "NVDA", nil)
	require.NoError(t, err)
	// MaxExpirations=2: 09-05 (vacía) y 09-19
	assert.Equal(t, int32(2), chains.Load())
	assert.Len(t, quotes, 2)
}

func TestFetchOptionChain_NoExpirations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"expirations":null}`))
	}))
	defer srv.Close()

	quotes, err := newTestClient(srv).FetchOptionChain(context.Background(), "NVDA", nil)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestFetchOptionChain_ClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("invalid access token"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchOptionChain(context.Background(), "NVDA", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestGet_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(quoteNVDA))
	}))
	defer srv.Close()

	und, err := newTestClient(srv).FetchUnderlyingQuote(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.Equal(t, "NVDA", und.Ticker)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLookupPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "NVDA250919C00180000,NVDA", r.URL.Query().Get("symbols"))
		w.Write([]byte(`{"quotes":{"quote":[
			{"symbol":"NVDA250919C00180000","type":"option","last":2.5,"bid":2.40,"ask":2.60},
			{"symbol":"NVDA","type":"stock","last":163.0}
		]}}`))
	}))
	defer srv.Close()

	trade := domain.PaperTrade{Symbol: "NVDA250919C00180000", Underlying: "NVDA"}
	opt, und, err := newTestClient(srv).LookupPrices(context.Background(), trade)
	require.NoError(t, err)
	assert.InDelta(t, 2.50, opt, 0.0001)
	assert.Equal(t, 163.0, und)
}

func TestLookupPrices_NoPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quotes":{"quote":{"symbol":"NVDA250919C00180000","type":"option","last":null,"bid":0,"ask":0}}}`))
	}))
	defer srv.Close()

	trade := domain.PaperTrade{Symbol: "NVDA250919C00180000", Underlying: "NVDA", LastUnderlyingPrice: 150}
	_, _, err := newTestClient(srv).LookupPrices(context.Background(), trade)
	assert.Error(t, err)
}
