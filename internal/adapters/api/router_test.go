package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alejandrodnm/flowscan/internal/adapters/api"
	"github.com/alejandrodnm/flowscan/internal/adapters/storage"
	"github.com/alejandrodnm/flowscan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 9, 2, 14, 0, 0, 0, time.UTC)

func makeSignal(symbol string) domain.Signal {
	return domain.Signal{
		Underlying:        "NVDA",
		Symbol:            symbol,
		Type:              domain.OptionCall,
		Strike:            180,
		Expiration:        time.Date(2025, 9, 19, 0, 0, 0, 0, time.UTC),
		Multiplier:        100,
		UnderlyingPrice:   160,
		Volume:            1000,
		OpenInterest:      100,
		Last:              2.00,
		Bid:               1.95,
		Ask:               2.05,
		Greeks:            domain.Greeks{Delta: domain.Float(0.31)},
		DTE:               17,
		Premium:           200_000,
		VolumeOIRatio:     10,
		MoneynessPercent:  12.5,
		MoneynessCategory: domain.DeepOTM,
		Strength:          domain.StrengthHigh,
	}
}

// seed guarda dos señales, un trade abierto y uno cerrado con +40.
func seed(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:", storage.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.WithClock(func() time.Time { return t0 })

	ctx := context.Background()
	a, err := db.SaveSignal(ctx, makeSignal("NVDA250919C00180000"))
	require.NoError(t, err)
	b, err := db.SaveSignal(ctx, makeSignal("NVDA250919C00190000"))
	require.NoError(t, err)

	open, err := domain.NewPaperTrade(a, 1, t0)
	require.NoError(t, err)
	_, err = db.CreateTrade(ctx, open)
	require.NoError(t, err)

	tr, err := domain.NewPaperTrade(b, 1, t0)
	require.NoError(t, err)
	tr, err = db.CreateTrade(ctx, tr)
	require.NoError(t, err)
	closed, err := tr.Close(2.40, 165, domain.ExitTimeLimit, t0.Add(24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, db.UpdateTrade(ctx, closed))

	require.NoError(t, db.SaveCycle(ctx, domain.ScanCycle{ID: "c1", StartedAt: t0, Duration: time.Second, Signals: 2}))
	return db
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Healthz(t *testing.T) {
	r := api.NewRouter(seed(t))
	rec := get(t, r, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_Signals(t *testing.T) {
	r := api.NewRouter(seed(t))

	rec := get(t, r, "/api/signals?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "NVDA250919C00190000", out[0]["symbol"])
	assert.Equal(t, "high", out[0]["strength"])
	assert.Equal(t, "2025-09-19", out[0]["expiration"])

	rec = get(t, r, "/api/signals?limit=0")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, r, "/api/signals?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_SignalByID(t *testing.T) {
	r := api.NewRouter(seed(t))

	rec := get(t, r, "/api/signals/1")
	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "NVDA250919C00180000", out["symbol"])

	assert.Equal(t, http.StatusNotFound, get(t, r, "/api/signals/999").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, r, "/api/signals/x").Code)
}

func TestRouter_TradesByStatus(t *testing.T) {
	r := api.NewRouter(seed(t))

	var all []map[string]any
	rec := get(t, r, "/api/trades")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	var closed []map[string]any
	rec = get(t, r, "/api/trades?status=closed")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &closed))
	require.Len(t, closed, 1)
	assert.Equal(t, "time_limit", closed[0]["exit_reason"])
	assert.InDelta(t, 40.0, closed[0]["pnl"], 0.001)

	assert.Equal(t, http.StatusBadRequest, get(t, r, "/api/trades?status=bogus").Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/api/trades/42").Code)
}

func TestRouter_Performance(t *testing.T) {
	r := api.NewRouter(seed(t))

	rec := get(t, r, "/api/performance")
	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.EqualValues(t, 2, out["total_trades"])
	assert.EqualValues(t, 1, out["open_trades"])
	assert.EqualValues(t, 1, out["closed_trades"])
	assert.EqualValues(t, 100, out["win_rate"])
	assert.EqualValues(t, 40, out["total_pnl"])
}

func TestRouter_CyclesAndMetrics(t *testing.T) {
	r := api.NewRouter(seed(t))

	rec := get(t, r, "/api/cycles")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"duration_ms":1000`)

	rec = get(t, r, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "flowscan_cycles_total")
}
