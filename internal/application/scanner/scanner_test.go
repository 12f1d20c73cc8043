package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/flowscan/internal/application/detector"
	"github.com/alejandrodnm/flowscan/internal/application/engine/paper"
	"github.com/alejandrodnm/flowscan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scanNow = time.Date(2025, 9, 1, 15, 0, 0, 0, time.UTC)

// --- fakes ---

type fakeMarket struct {
	underlyings map[string]domain.UnderlyingQuote
	chains      map[string][]domain.OptionQuote
	failChain   map[string]bool
}

func (f *fakeMarket) FetchUnderlyingQuote(_ context.Context, ticker string) (domain.UnderlyingQuote, error) {
	und, ok := f.underlyings[ticker]
	if !ok {
		return domain.UnderlyingQuote{}, errors.New("unknown symbol")
	}
	return und, nil
}

func (f *fakeMarket) FetchOptionChain(_ context.Context, ticker string, _ *time.Time) ([]domain.OptionQuote, error) {
	if f.failChain[ticker] {
		return nil, errors.New("502 bad gateway")
	}
	return f.chains[ticker], nil
}

type fakePrices struct{ opt, und float64 }

func (f fakePrices) LookupPrices(context.Context, domain.PaperTrade) (float64, float64, error) {
	return f.opt, f.und, nil
}

type fakeStore struct {
	signals []domain.Signal
	trades  []domain.PaperTrade
	cycles  []domain.ScanCycle
	seen    map[string]bool
	failSig bool
}

func newFakeStore() *fakeStore { return &fakeStore{seen: make(map[string]bool)} }

func (f *fakeStore) SaveSignal(_ context.Context, sig domain.Signal) (domain.Signal, error) {
	if f.failSig {
		return domain.Signal{}, errors.New("database is locked")
	}
	if f.seen[sig.Symbol] {
		return domain.Signal{}, domain.ErrDuplicateSignal
	}
	f.seen[sig.Symbol] = true
	sig.ID = int64(len(f.signals) + 1)
	sig.DetectedAt = scanNow
	f.signals = append(f.signals, sig)
	return sig, nil
}

func (f *fakeStore) GetSignal(_ context.Context, id int64) (domain.Signal, error) {
	for _, s := range f.signals {
		if s.ID == id {
			return s, nil
		}
	}
	return domain.Signal{}, domain.ErrNotFound
}

func (f *fakeStore) RecentSignals(context.Context, int) ([]domain.Signal, error) {
	return f.signals, nil
}

func (f *fakeStore) CreateTrade(_ context.Context, t domain.PaperTrade) (domain.PaperTrade, error) {
	for _, existing := range f.trades {
		if existing.SignalID == t.SignalID {
			return domain.PaperTrade{}, domain.ErrTradeExists
		}
	}
	t.ID = int64(len(f.trades) + 1)
	f.trades = append(f.trades, t)
	return t, nil
}

func (f *fakeStore) UpdateTrade(_ context.Context, t domain.PaperTrade) error {
	for i := range f.trades {
		if f.trades[i].ID == t.ID {
			if !f.trades[i].IsOpen() {
				return domain.ErrTradeNotOpen
			}
			f.trades[i] = t
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeStore) GetTrade(_ context.Context, id int64) (domain.PaperTrade, error) {
	for _, t := range f.trades {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.PaperTrade{}, domain.ErrNotFound
}

func (f *fakeStore) GetTradeBySignal(_ context.Context, signalID int64) (domain.PaperTrade, error) {
	for _, t := range f.trades {
		if t.SignalID == signalID {
			return t, nil
		}
	}
	return domain.PaperTrade{}, domain.ErrNotFound
}

func (f *fakeStore) ListTrades(_ context.Context, status domain.TradeStatus) ([]domain.PaperTrade, error) {
	var out []domain.PaperTrade
	for _, t := range f.trades {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) SaveCycle(_ context.Context, c domain.ScanCycle) error {
	f.cycles = append(f.cycles, c)
	return nil
}

func (f *fakeStore) RecentCycles(context.Context, int) ([]domain.ScanCycle, error) {
	return f.cycles, nil
}

func (f *fakeStore) Close() error { return nil }

type fakeNotifier struct {
	messages []string
	fail     bool
}

func (f *fakeNotifier) Notify(_ context.Context, msg string, _ domain.Signal) error {
	if f.fail {
		return errors.New("twilio 500")
	}
	f.messages = append(f.messages, msg)
	return nil
}

// --- helpers ---

func unusualCall(symbol string, volume int64) domain.OptionQuote {
	return domain.OptionQuote{
		Underlying:   "NVDA",
		Symbol:       symbol,
		Kind:         domain.KindOption,
		Type:         domain.OptionCall,
		Strike:       domain.Float(180),
		Expiration:   domain.Time(time.Date(2025, 9, 19, 0, 0, 0, 0, time.UTC)),
		Volume:       domain.Int(volume),
		OpenInterest: domain.Int(100),
		Last:         domain.Float(2.00),
		Bid:          domain.Float(1.95),
		Ask:          domain.Float(2.05),
		Multiplier:   100,
	}
}

func nvdaMarket() *fakeMarket {
	return &fakeMarket{
		underlyings: map[string]domain.UnderlyingQuote{
			"NVDA": {Ticker: "NVDA", Kind: domain.KindStock, Last: 160},
		},
		chains: map[string][]domain.OptionQuote{
			"NVDA": {
				unusualCall("NVDA250919C00180000", 1000), // high: 200k premium, ratio 10
				unusualCall("NVDA250919C00185000", 300),  // medium: 60k premium, ratio 3
				unusualCall("NVDA250919C00190000", 10),   // rechazada
			},
		},
	}
}

func newTestScanner(cfg Config, market *fakeMarket, store *fakeStore, n *fakeNotifier) *Scanner {
	clock := func() time.Time { return scanNow }
	deps := Deps{
		Market:   market,
		Prices:   fakePrices{opt: 2.10, und: 161},
		Storage:  store,
		Detector: detector.New(detector.DefaultThresholds()).WithClock(clock),
		Paper:    paper.New(store, paper.DefaultConfig()).WithClock(clock),
	}
	if n != nil {
		deps.Notifier = n
	}
	return New(cfg, deps).WithClock(clock)
}

// --- tests ---

func TestRunCycle_FullPipeline(t *testing.T) {
	store := newFakeStore()
	n := &fakeNotifier{}
	s := newTestScanner(Config{Tickers: []string{"NVDA"}}, nvdaMarket(), store, n)

	cycle, err := s.RunCycle(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, cycle.ID)
	assert.Equal(t, 1, cycle.Tickers)
	assert.Equal(t, 3, cycle.Quotes)
	assert.Equal(t, 2, cycle.Signals)
	assert.Equal(t, 2, cycle.Notified)
	assert.Equal(t, 2, cycle.TradesOpened)
	assert.Equal(t, 0, cycle.TradesClosed)

	require.Len(t, store.trades, 2)
	assert.Equal(t, int64(1), store.trades[0].SignalID)
	// el monitor del mismo ciclo ya marcó los trades recién abiertos
	assert.NotNil(t, store.trades[0].LastMarkedAt)
	require.Len(t, store.cycles, 1)
	assert.Equal(t, cycle.ID, store.cycles[0].ID)
}

func TestRunCycle_DuplicatesSuppressedAcrossCycles(t *testing.T) {
	store := newFakeStore()
	s := newTestScanner(Config{Tickers: []string{"NVDA"}}, nvdaMarket(), store, nil)

	_, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	second, err := s.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, second.Signals)
	assert.Equal(t, 2, second.Duplicates)
	assert.Len(t, store.trades, 2)
}

func TestRunCycle_FetchFailureSkipsTicker(t *testing.T) {
	market := nvdaMarket()
	market.underlyings["AAPL"] = domain.UnderlyingQuote{Ticker: "AAPL", Kind: domain.KindStock, Last: 230}
	market.failChain = map[string]bool{"AAPL": true}

	store := newFakeStore()
	s := newTestScanner(Config{Tickers: []string{"AAPL", "TSLA", "NVDA"}}, market, store, nil)

	cycle, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, cycle.FetchErrors)
	assert.Equal(t, 2, cycle.Signals)
}

func TestRunCycle_AllTickersFailing(t *testing.T) {
	store := newFakeStore()
	s := newTestScanner(Config{Tickers: []string{"TSLA"}}, nvdaMarket(), store, nil)

	cycle, err := s.RunCycle(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, cycle.FetchErrors)
	assert.Len(t, store.cycles, 1)
}

func TestRunCycle_StorageFailureSkipsEntry(t *testing.T) {
	store := newFakeStore()
	store.failSig = true
	s := newTestScanner(Config{Tickers: []string{"NVDA"}}, nvdaMarket(), store, nil)

	cycle, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, cycle.Signals)
	assert.Empty(t, store.trades)
}

func TestNotifySignals_MinStrengthAndFailures(t *testing.T) {
	store := newFakeStore()
	n := &fakeNotifier{}
	s := newTestScanner(Config{MinNotifyStrength: domain.StrengthHigh}, nvdaMarket(), store, n)

	signals := []domain.Signal{
		{ID: 1, Symbol: "A", Strength: domain.StrengthHigh},
		{ID: 2, Symbol: "B", Strength: domain.StrengthMedium},
		{ID: 3, Symbol: "C", Strength: domain.StrengthLow},
	}
	assert.Equal(t, 1, s.NotifySignals(context.Background(), signals))
	require.Len(t, n.messages, 1)
	assert.Contains(t, n.messages[0], "A")

	n.fail = true
	assert.Equal(t, 0, s.NotifySignals(context.Background(), signals))
}

func TestNotifySignals_NoNotifier(t *testing.T) {
	s := newTestScanner(Config{}, nvdaMarket(), newFakeStore(), nil)
	assert.Equal(t, 0, s.NotifySignals(context.Background(), []domain.Signal{{ID: 1}}))
}

func TestRun_OnceReturnsAfterOneCycle(t *testing.T) {
	store := newFakeStore()
	s := newTestScanner(Config{Tickers: []string{"NVDA"}, Once: true}, nvdaMarket(), store, nil)

	require.NoError(t, s.Run(context.Background()))
	assert.Len(t, store.cycles, 1)
}

func TestRun_StopsOnCancel(t *testing.T) {
	store := newFakeStore()
	s := newTestScanner(Config{Tickers: []string{"NVDA"}, Interval: time.Hour}, nvdaMarket(), store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// el primer ciclo corre igual; luego el loop ve ctx cancelado
	require.NoError(t, s.Run(ctx))
	assert.Len(t, store.cycles, 1)
}
