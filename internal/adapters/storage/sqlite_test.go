package storage_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alejandrodnm/flowscan/internal/adapters/storage"
	"github.com/alejandrodnm/flowscan/internal/domain"
	"github.com/alejandrodnm/flowscan/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 9, 2, 14, 0, 0, 0, time.UTC)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

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
		Greeks:            domain.Greeks{Delta: domain.Float(0.31), ImpliedVol: domain.Float(0.45)},
		QuotedAt:          t0.Add(-time.Minute),
		DTE:               17,
		Premium:           200_000,
		VolumeOIRatio:     10,
		SpreadPercent:     5,
		MoneynessPercent:  12.5,
		MoneynessCategory: domain.DeepOTM,
		Strength:          domain.StrengthHigh,
		PreferredOTM:      true,
	}
}

func newSQLite(t *testing.T, clk *clock) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:", storage.Options{DuplicateWindow: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.WithClock(clk.now)
}

func TestSQLiteStorage_Contract(t *testing.T) {
	clk := &clock{t: t0}
	runStorageContract(t, newSQLite(t, clk), clk)
}

func TestPostgresStorage_Contract(t *testing.T) {
	dsn := os.Getenv("FLOWSCAN_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FLOWSCAN_TEST_POSTGRES_DSN not set")
	}
	db, err := storage.NewPostgresStorage(dsn, storage.Options{DuplicateWindow: time.Hour})
	require.NoError(t, err)
	defer db.Close()
	// la ventana de duplicados en Postgres usa el DetectedAt de la señal
	runStorageContract(t, db, nil)
}

// runStorageContract exercises the behaviour every ports.Storage must share.
// With a nil clock the signals carry their own DetectedAt.
func runStorageContract(t *testing.T, store ports.Storage, clk *clock) {
	ctx := context.Background()
	suffix := time.Now().Format("150405.000000")
	sym := "NVDA250919C00180000-" + suffix
	if clk != nil {
		sym = "NVDA250919C00180000"
	}
	at := func(d time.Duration) domain.Signal {
		sig := makeSignal(sym)
		if clk != nil {
			clk.t = t0.Add(d)
		} else {
			sig.DetectedAt = t0.Add(d)
		}
		return sig
	}

	t.Run("save assigns identity and round-trips", func(t *testing.T) {
		saved, err := store.SaveSignal(ctx, at(0))
		require.NoError(t, err)
		assert.True(t, saved.Persisted())
		assert.Equal(t, t0, saved.DetectedAt)

		got, err := store.GetSignal(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, saved.Symbol, got.Symbol)
		assert.Equal(t, domain.StrengthHigh, got.Strength)
		assert.Equal(t, domain.DeepOTM, got.MoneynessCategory)
		assert.Equal(t, 200_000.0, got.Premium)
		assert.True(t, got.PreferredOTM)
		assert.Equal(t, 0.31, *got.Greeks.Delta)
		assert.Nil(t, got.Greeks.Gamma)
		assert.Equal(t, t0.Add(-time.Minute), got.QuotedAt)
		assert.Equal(t, saved.Expiration, got.Expiration)
	})

	t.Run("duplicate within window", func(t *testing.T) {
		_, err := store.SaveSignal(ctx, at(30*time.Minute))
		assert.ErrorIs(t, err, domain.ErrDuplicateSignal)
	})

	t.Run("same symbol after window", func(t *testing.T) {
		saved, err := store.SaveSignal(ctx, at(61*time.Minute))
		require.NoError(t, err)
		assert.True(t, saved.Persisted())
	})

	t.Run("unknown signal", func(t *testing.T) {
		_, err := store.GetSignal(ctx, 9_999_999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("trade lifecycle", func(t *testing.T) {
		other := makeSignal(sym + "-T")
		if clk != nil {
			clk.t = t0.Add(2 * time.Hour)
		} else {
			other.DetectedAt = t0.Add(2 * time.Hour)
		}
		sig, err := store.SaveSignal(ctx, other)
		require.NoError(t, err)

		trade, err := domain.NewPaperTrade(sig, 2, t0.Add(2*time.Hour))
		require.NoError(t, err)
		created, err := store.CreateTrade(ctx, trade)
		require.NoError(t, err)
		assert.True(t, created.ID > 0)

		_, err = store.CreateTrade(ctx, trade)
		assert.ErrorIs(t, err, domain.ErrTradeExists)

		bySig, err := store.GetTradeBySignal(ctx, sig.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, bySig.ID)
		assert.InDelta(t, 2.00, bySig.EntryPrice, 1e-9)
		assert.Equal(t, domain.TradeOpen, bySig.Status)
		assert.Nil(t, bySig.MaxPnL)
		assert.Nil(t, bySig.ExitTime)

		marked, err := bySig.Mark(2.50, 165, t0.Add(3*time.Hour))
		require.NoError(t, err)
		require.NoError(t, store.UpdateTrade(ctx, marked))

		closed, err := marked.Close(2.20, 162, domain.ExitTimeLimit, t0.Add(26*time.Hour))
		require.NoError(t, err)
		require.NoError(t, store.UpdateTrade(ctx, closed))

		got, err := store.GetTrade(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TradeClosed, got.Status)
		assert.Equal(t, domain.ExitTimeLimit, got.ExitReason)
		assert.Equal(t, 100.0, *got.MaxPnL)
		assert.Equal(t, 40.0, *got.PnL)
		assert.Equal(t, 10.0, *got.PnLPercent)
		require.NotNil(t, got.ExitTime)
		assert.Equal(t, t0.Add(26*time.Hour), *got.ExitTime)

		open, err := store.ListTrades(ctx, domain.TradeOpen)
		require.NoError(t, err)
		for _, tr := range open {
			assert.NotEqual(t, created.ID, tr.ID)
		}
		all, err := store.ListTrades(ctx, "")
		require.NoError(t, err)
		assert.NotEmpty(t, all)
	})

	t.Run("closed trade rejects stale open update", func(t *testing.T) {
		other := makeSignal(sym + "-S")
		if clk != nil {
			clk.t = t0.Add(4 * time.Hour)
		} else {
			other.DetectedAt = t0.Add(4 * time.Hour)
		}
		sig, err := store.SaveSignal(ctx, other)
		require.NoError(t, err)

		trade, err := domain.NewPaperTrade(sig, 1, t0.Add(4*time.Hour))
		require.NoError(t, err)
		created, err := store.CreateTrade(ctx, trade)
		require.NoError(t, err)

		closed, err := created.Close(2.50, 165, domain.ExitManual, t0.Add(5*time.Hour))
		require.NoError(t, err)
		require.NoError(t, store.UpdateTrade(ctx, closed))

		// una copia vieja del trade abierto no puede reabrirlo
		stale, err := created.Mark(2.10, 161, t0.Add(6*time.Hour))
		require.NoError(t, err)
		err = store.UpdateTrade(ctx, stale)
		assert.ErrorIs(t, err, domain.ErrTradeNotOpen)

		got, err := store.GetTrade(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TradeClosed, got.Status)
		assert.Equal(t, domain.ExitManual, got.ExitReason)
		require.NotNil(t, got.ExitPrice)
		assert.Equal(t, 2.50, *got.ExitPrice)
		require.NotNil(t, got.PnL)
		assert.Equal(t, 50.0, *got.PnL)
		require.NotNil(t, got.ExitTime)
		assert.Equal(t, t0.Add(5*time.Hour), *got.ExitTime)

		// un segundo cierre tampoco pisa el primero
		reclosed, err := created.Close(1.00, 150, domain.ExitExpired, t0.Add(7*time.Hour))
		require.NoError(t, err)
		assert.ErrorIs(t, store.UpdateTrade(ctx, reclosed), domain.ErrTradeNotOpen)
	})

	t.Run("missing trade", func(t *testing.T) {
		_, err := store.GetTrade(ctx, 9_999_999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = store.GetTradeBySignal(ctx, 9_999_999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		err = store.UpdateTrade(ctx, domain.PaperTrade{ID: 9_999_999, Status: domain.TradeOpen})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("cycles", func(t *testing.T) {
		c := domain.ScanCycle{
			ID:        "cycle-" + suffix,
			StartedAt: t0,
			Duration:  1500 * time.Millisecond,
			Tickers:   3,
			Quotes:    420,
			Signals:   2,
		}
		require.NoError(t, store.SaveCycle(ctx, c))
		cycles, err := store.RecentCycles(ctx, 10)
		require.NoError(t, err)
		require.NotEmpty(t, cycles)

		var found bool
		for _, got := range cycles {
			if got.ID == c.ID {
				found = true
				assert.Equal(t, c.Duration, got.Duration)
				assert.Equal(t, 420, got.Quotes)
			}
		}
		assert.True(t, found)
	})
}

func TestSQLiteStorage_RecentSignalsNewestFirst(t *testing.T) {
	clk := &clock{t: t0}
	db := newSQLite(t, clk)
	ctx := context.Background()

	for i, sym := range []string{"A", "B", "C"} {
		clk.t = t0.Add(time.Duration(i) * time.Minute)
		_, err := db.SaveSignal(ctx, makeSignal(sym))
		require.NoError(t, err)
	}

	recent, err := db.RecentSignals(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "C", recent[0].Symbol)
	assert.Equal(t, "B", recent[1].Symbol)
}

func TestSQLiteStorage_ListTradesInEntryOrder(t *testing.T) {
	clk := &clock{t: t0}
	db := newSQLite(t, clk)
	ctx := context.Background()

	for i, sym := range []string{"A", "B"} {
		sig, err := db.SaveSignal(ctx, makeSignal(sym))
		require.NoError(t, err)
		trade, err := domain.NewPaperTrade(sig, 1, t0.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
		_, err = db.CreateTrade(ctx, trade)
		require.NoError(t, err)
	}

	trades, err := db.ListTrades(ctx, domain.TradeOpen)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "A", trades[0].Symbol)
	assert.Equal(t, "B", trades[1].Symbol)

	closed, err := db.ListTrades(ctx, domain.TradeClosed)
	require.NoError(t, err)
	assert.Empty(t, closed)
}
