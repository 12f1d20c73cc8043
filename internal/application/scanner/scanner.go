package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/flowscan/internal/application/detector"
	"github.com/alejandrodnm/flowscan/internal/application/engine/paper"
	"github.com/alejandrodnm/flowscan/internal/domain"
	"github.com/alejandrodnm/flowscan/internal/metrics"
	"github.com/alejandrodnm/flowscan/internal/ports"
)

const defaultInterval = 5 * time.Minute

// Config contiene la configuración del scanner.
type Config struct {
	Interval          time.Duration
	Tickers           []string
	TickerDelay       time.Duration   // pausa entre tickers para no quemar el rate limit
	MinNotifyStrength domain.Strength // vacío = notificar todas
	Once              bool
}

// MessageFormatter renders the text handed to the notifier for one signal.
type MessageFormatter func(sig domain.Signal) string

// Deps agrupa los colaboradores del scanner. Notifier puede ser nil.
type Deps struct {
	Market   ports.MarketData
	Prices   ports.PriceLookup
	Storage  ports.Storage
	Notifier ports.Notifier
	Format   MessageFormatter
	Detector *detector.Detector
	Paper    *paper.Engine
}

// Scanner es el orquestador del ciclo de escaneo. Cada paso es invocable por
// separado; RunCycle los compone en el orden fetch → detect → persist → notify →
// auto-enter → monitor → performance.
type Scanner struct {
	cfg  Config
	deps Deps
	now  func() time.Time
}

// New crea un Scanner con todas las dependencias inyectadas.
func New(cfg Config, deps Deps) *Scanner {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if deps.Format == nil {
		deps.Format = defaultFormat
	}
	return &Scanner{cfg: cfg, deps: deps, now: time.Now}
}

// WithClock replaces the time source used for cycle timestamps.
func (s *Scanner) WithClock(now func() time.Time) *Scanner {
	s.now = now
	return s
}

// Run ejecuta el loop de escaneo hasta que el contexto se cancele.
// Una señal de apagado deja de programar ciclos nuevos pero no corta el ciclo en curso.
func (s *Scanner) Run(ctx context.Context) error {
	slog.Info("scanner starting",
		"interval", s.cfg.Interval,
		"tickers", len(s.cfg.Tickers),
		"once", s.cfg.Once,
	)

	if _, err := s.RunCycle(ctx); err != nil {
		slog.Error("scan cycle failed", "err", err)
		if s.cfg.Once {
			return err
		}
	}
	if s.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scanner stopped")
			return nil
		case <-ticker.C:
			if _, err := s.RunCycle(ctx); err != nil {
				slog.Error("scan cycle failed", "err", err)
			}
		}
	}
}

// RunCycle ejecuta un ciclo completo sobre todos los tickers y lo registra.
// Returns an error only when every ticker failed to fetch.
func (s *Scanner) RunCycle(ctx context.Context) (domain.ScanCycle, error) {
	// el ciclo en curso termina aunque llegue el shutdown
	ctx = context.WithoutCancel(ctx)

	cycle := domain.ScanCycle{
		ID:        uuid.NewString(),
		StartedAt: s.now(),
		Tickers:   len(s.cfg.Tickers),
	}
	log := slog.With("cycle_id", cycle.ID)

	for i, ticker := range s.cfg.Tickers {
		if i > 0 && s.cfg.TickerDelay > 0 {
			time.Sleep(s.cfg.TickerDelay)
		}

		und, quotes, err := s.FetchQuotes(ctx, ticker)
		if err != nil {
			cycle.FetchErrors++
			log.Warn("fetch failed, skipping ticker", "ticker", ticker, "err", err)
			continue
		}
		cycle.Quotes += len(quotes)

		detected := s.Detect(quotes, und)
		persisted, dups := s.PersistSignals(ctx, detected)
		cycle.Signals += len(persisted)
		cycle.Duplicates += dups
		cycle.Notified += s.NotifySignals(ctx, persisted)

		opened := s.AutoEnter(ctx, persisted)
		cycle.TradesOpened += len(opened)

		if len(persisted) > 0 {
			log.Info("signals detected",
				"ticker", ticker,
				"quotes", len(quotes),
				"signals", len(persisted),
				"duplicates", dups,
				"trades_opened", len(opened),
			)
		}
	}

	res := s.MonitorOpen(ctx)
	cycle.TradesClosed = len(res.Closed)
	cycle.TradesSkipped = res.Skipped

	if summary, err := s.Performance(ctx); err == nil {
		log.Info("paper performance",
			"open", summary.OpenTrades,
			"closed", summary.ClosedTrades,
			"win_rate", fmt.Sprintf("%.2f%%", summary.WinRate),
			"total_pnl", fmt.Sprintf("$%.2f", summary.TotalPnL),
		)
	}

	cycle.Duration = s.now().Sub(cycle.StartedAt)
	if err := s.deps.Storage.SaveCycle(ctx, cycle); err != nil {
		log.Warn("storage error saving cycle", "err", err)
	}
	metrics.CyclesTotal.Inc()

	log.Info("scan cycle complete",
		"quotes", cycle.Quotes,
		"signals", cycle.Signals,
		"notified", cycle.Notified,
		"opened", cycle.TradesOpened,
		"closed", cycle.TradesClosed,
		"fetch_errors", cycle.FetchErrors,
		"duration", cycle.Duration.Round(time.Millisecond),
	)

	if cycle.Tickers > 0 && cycle.FetchErrors == cycle.Tickers {
		return cycle, fmt.Errorf("scanner.RunCycle: all %d tickers failed to fetch", cycle.Tickers)
	}
	return cycle, nil
}

// FetchQuotes obtiene la cotización del subyacente y su cadena de opciones.
func (s *Scanner) FetchQuotes(ctx context.Context, ticker string) (domain.UnderlyingQuote, []domain.OptionQuote, error) {
	und, err := s.deps.Market.FetchUnderlyingQuote(ctx, ticker)
	if err != nil {
		metrics.FetchErrorsTotal.WithLabelValues(ticker).Inc()
		return domain.UnderlyingQuote{}, nil, fmt.Errorf("scanner.FetchQuotes: underlying %s: %w", ticker, err)
	}
	quotes, err := s.deps.Market.FetchOptionChain(ctx, ticker, nil)
	if err != nil {
		metrics.FetchErrorsTotal.WithLabelValues(ticker).Inc()
		return und, nil, fmt.Errorf("scanner.FetchQuotes: chain %s: %w", ticker, err)
	}
	metrics.QuotesTotal.WithLabelValues(ticker).Add(float64(len(quotes)))
	return und, quotes, nil
}

// Detect evaluates every quote against the underlying.
func (s *Scanner) Detect(quotes []domain.OptionQuote, und domain.UnderlyingQuote) []domain.Signal {
	return s.deps.Detector.EvaluateBatch(quotes, und)
}

// PersistSignals guarda cada señal y devuelve las que obtuvieron identidad.
// Los duplicados dentro de la ventana se cuentan y se descartan.
func (s *Scanner) PersistSignals(ctx context.Context, signals []domain.Signal) ([]domain.Signal, int) {
	persisted := make([]domain.Signal, 0, len(signals))
	dups := 0
	for _, sig := range signals {
		saved, err := s.deps.Storage.SaveSignal(ctx, sig)
		if errors.Is(err, domain.ErrDuplicateSignal) {
			dups++
			slog.Debug("duplicate signal suppressed", "symbol", sig.Symbol)
			continue
		}
		if err != nil {
			slog.Warn("storage error saving signal", "symbol", sig.Symbol, "err", err)
			continue
		}
		metrics.SignalsTotal.WithLabelValues(string(saved.Strength)).Inc()
		persisted = append(persisted, saved)
	}
	return persisted, dups
}

// NotifySignals delivers one message per signal at or above the minimum
// strength. Failures are logged and never retried. Returns the number delivered.
func (s *Scanner) NotifySignals(ctx context.Context, signals []domain.Signal) int {
	if s.deps.Notifier == nil {
		return 0
	}
	sent := 0
	for _, sig := range signals {
		if s.cfg.MinNotifyStrength != "" && !sig.Strength.AtLeast(s.cfg.MinNotifyStrength) {
			continue
		}
		if err := s.deps.Notifier.Notify(ctx, s.deps.Format(sig), sig); err != nil {
			metrics.NotifyFailuresTotal.Inc()
			slog.Warn("notifier error", "symbol", sig.Symbol, "err", err)
			continue
		}
		sent++
	}
	return sent
}

// AutoEnter opens paper trades for persisted signals.
func (s *Scanner) AutoEnter(ctx context.Context, signals []domain.Signal) []domain.PaperTrade {
	if s.deps.Paper == nil {
		return nil
	}
	return s.deps.Paper.AutoEnterBatch(ctx, signals)
}

// MonitorOpen re-marks every open trade and applies the auto-exit policy.
func (s *Scanner) MonitorOpen(ctx context.Context) paper.MonitorResult {
	if s.deps.Paper == nil || s.deps.Prices == nil {
		return paper.MonitorResult{}
	}
	open, err := s.deps.Paper.OpenTrades(ctx)
	if err != nil {
		slog.Warn("storage error listing open trades", "err", err)
		return paper.MonitorResult{}
	}
	if len(open) == 0 {
		return paper.MonitorResult{}
	}
	return s.deps.Paper.MonitorAll(ctx, open, s.deps.Prices)
}

// Performance returns the current paper-trading summary.
func (s *Scanner) Performance(ctx context.Context) (domain.PerformanceSummary, error) {
	if s.deps.Paper == nil {
		return domain.PerformanceSummary{}, errors.New("scanner.Performance: paper engine not configured")
	}
	summary, err := s.deps.Paper.Performance(ctx)
	if err != nil {
		slog.Warn("storage error computing performance", "err", err)
		return domain.PerformanceSummary{}, err
	}
	return summary, nil
}

func defaultFormat(sig domain.Signal) string {
	return fmt.Sprintf("%s %s %s $%.0f premium, vol/oi %.1f", sig.Strength, sig.Symbol, sig.Type, sig.Premium, sig.VolumeOIRatio)
}
