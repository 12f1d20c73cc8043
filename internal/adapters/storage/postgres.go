package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/alejandrodnm/flowscan/internal/domain"
)

// PostgresStorage implementa ports.Storage sobre Postgres con GORM.
// Mismas tablas y reglas que SQLiteStorage; el schema lo crea AutoMigrate.
type PostgresStorage struct {
	db        *gorm.DB
	dupWindow time.Duration
	now       func() time.Time
}

type signalRow struct {
	ID                int64     `gorm:"primaryKey"`
	DetectedAt        time.Time `gorm:"index:idx_signals_symbol_at,priority:2;not null"`
	Underlying        string    `gorm:"size:16;not null"`
	Symbol            string    `gorm:"size:32;index:idx_signals_symbol_at,priority:1;not null"`
	OptionType        string    `gorm:"size:4;not null"`
	Strike            float64
	Expiration        time.Time
	Multiplier        int
	UnderlyingPrice   float64
	Volume            int64
	OpenInterest      int64
	Last              float64
	Bid               float64
	Ask               float64
	Delta             *float64
	Gamma             *float64
	Theta             *float64
	Vega              *float64
	Rho               *float64
	ImpliedVol        *float64
	QuotedAt          *time.Time
	DTE               int `gorm:"column:dte"`
	Premium           float64
	VolumeOIRatio     float64 `gorm:"column:volume_oi_ratio"`
	SpreadPercent     float64
	MoneynessPercent  float64
	MoneynessCategory string `gorm:"size:16"`
	Strength          string `gorm:"size:8"`
	PreferredOTM      bool   `gorm:"column:preferred_otm"`
}

func (signalRow) TableName() string { return "signals" }

type tradeRow struct {
	ID                   int64  `gorm:"primaryKey"`
	SignalID             int64  `gorm:"uniqueIndex;not null"`
	Symbol               string `gorm:"size:32;not null"`
	Underlying           string `gorm:"size:16;not null"`
	OptionType           string `gorm:"size:4"`
	Expiration           time.Time
	Multiplier           int
	Direction            string `gorm:"size:8"`
	Quantity             int
	EntryPrice           float64
	EntryUnderlyingPrice float64
	EntryTime            time.Time
	Status               string `gorm:"size:8;index"`
	LastPrice            float64
	LastUnderlyingPrice  float64
	UnrealizedPnL        float64 `gorm:"column:unrealized_pnl"`
	UnrealizedPnLPercent float64 `gorm:"column:unrealized_pnl_percent"`
	LastMarkedAt         *time.Time
	MaxPnL               *float64 `gorm:"column:max_pnl"`
	MinPnL               *float64 `gorm:"column:min_pnl"`
	MaxPnLPercent        *float64 `gorm:"column:max_pnl_percent"`
	MinPnLPercent        *float64 `gorm:"column:min_pnl_percent"`
	ExitPrice            *float64
	ExitUnderlyingPrice  *float64
	ExitTime             *time.Time
	ExitReason           *string  `gorm:"size:16"`
	PnL                  *float64 `gorm:"column:pnl"`
	PnLPercent           *float64 `gorm:"column:pnl_percent"`
}

func (tradeRow) TableName() string { return "paper_trades" }

type cycleRow struct {
	ID            string    `gorm:"primaryKey;size:36"`
	StartedAt     time.Time `gorm:"index"`
	DurationMs    int64
	Tickers       int
	Quotes        int
	Signals       int
	Duplicates    int
	Notified      int
	TradesOpened  int
	TradesClosed  int
	TradesSkipped int
	FetchErrors   int
}

func (cycleRow) TableName() string { return "scan_cycles" }

// NewPostgresStorage conecta, configura el pool y migra el schema.
func NewPostgresStorage(dsn string, opts Options) (*PostgresStorage, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("storage.NewPostgresStorage: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("storage.NewPostgresStorage: get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.AutoMigrate(&signalRow{}, &tradeRow{}, &cycleRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("storage.NewPostgresStorage: migrate: %w", err)
	}

	if opts.DuplicateWindow <= 0 {
		opts.DuplicateWindow = defaultDuplicateWindow
	}
	return &PostgresStorage{db: db, dupWindow: opts.DuplicateWindow, now: time.Now}, nil
}

// SaveSignal persiste la señal salvo duplicado dentro de la ventana.
func (p *PostgresStorage) SaveSignal(ctx context.Context, sig domain.Signal) (domain.Signal, error) {
	if sig.DetectedAt.IsZero() {
		sig.DetectedAt = p.now()
	}
	sig.DetectedAt = sig.DetectedAt.UTC()

	row := toSignalRow(sig)
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&signalRow{}).
			Where("symbol = ? AND detected_at > ?", sig.Symbol, sig.DetectedAt.Add(-p.dupWindow)).
			Count(&count).Error; err != nil {
			return fmt.Errorf("duplicate check: %w", err)
		}
		if count > 0 {
			return domain.ErrDuplicateSignal
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return domain.Signal{}, fmt.Errorf("storage.SaveSignal: %s: %w", sig.Symbol, err)
	}
	sig.ID = row.ID
	return sig, nil
}

// GetSignal devuelve una señal por ID o domain.ErrNotFound.
func (p *PostgresStorage) GetSignal(ctx context.Context, id int64) (domain.Signal, error) {
	var row signalRow
	if err := p.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return domain.Signal{}, fmt.Errorf("storage.GetSignal: %d: %w", id, translateNotFound(err))
	}
	return fromSignalRow(row), nil
}

// RecentSignals devuelve las últimas señales, la más reciente primero.
func (p *PostgresStorage) RecentSignals(ctx context.Context, limit int) ([]domain.Signal, error) {
	var rows []signalRow
	if err := p.db.WithContext(ctx).Order("detected_at DESC, id DESC").Limit(limitOrDefault(limit)).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("storage.RecentSignals: %w", err)
	}
	out := make([]domain.Signal, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromSignalRow(r))
	}
	return out, nil
}

// CreateTrade inserta un trade abierto; un segundo trade para la misma señal
// devuelve domain.ErrTradeExists.
func (p *PostgresStorage) CreateTrade(ctx context.Context, t domain.PaperTrade) (domain.PaperTrade, error) {
	row := toTradeRow(t)
	err := p.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.PaperTrade{}, fmt.Errorf("storage.CreateTrade: signal %d: %w", t.SignalID, domain.ErrTradeExists)
	}
	if err != nil {
		return domain.PaperTrade{}, fmt.Errorf("storage.CreateTrade: %w", err)
	}
	t.ID = row.ID
	return t, nil
}

// UpdateTrade sobreescribe la fila completa del trade, solo si sigue abierto.
func (p *PostgresStorage) UpdateTrade(ctx context.Context, t domain.PaperTrade) error {
	row := toTradeRow(t)
	res := p.db.WithContext(ctx).Model(&tradeRow{}).
		Where("id = ? AND status = ?", t.ID, string(domain.TradeOpen)).
		Select("*").Omit("id", "signal_id").Updates(&row)
	if res.Error != nil {
		return fmt.Errorf("storage.UpdateTrade: %d: %w", t.ID, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	if _, err := p.GetTrade(ctx, t.ID); err != nil {
		return fmt.Errorf("storage.UpdateTrade: %w", err)
	}
	return fmt.Errorf("storage.UpdateTrade: %d: %w", t.ID, domain.ErrTradeNotOpen)
}

// GetTrade devuelve un trade por ID o domain.ErrNotFound.
func (p *PostgresStorage) GetTrade(ctx context.Context, id int64) (domain.PaperTrade, error) {
	var row tradeRow
	if err := p.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return domain.PaperTrade{}, fmt.Errorf("storage.GetTrade: %d: %w", id, translateNotFound(err))
	}
	return fromTradeRow(row), nil
}

// GetTradeBySignal devuelve el trade de una señal o domain.ErrNotFound.
func (p *PostgresStorage) GetTradeBySignal(ctx context.Context, signalID int64) (domain.PaperTrade, error) {
	var row tradeRow
	if err := p.db.WithContext(ctx).Where("signal_id = ?", signalID).First(&row).Error; err != nil {
		return domain.PaperTrade{}, fmt.Errorf("storage.GetTradeBySignal: %d: %w", signalID, translateNotFound(err))
	}
	return fromTradeRow(row), nil
}

// ListTrades devuelve los trades en orden de entrada; status vacío = todos.
func (p *PostgresStorage) ListTrades(ctx context.Context, status domain.TradeStatus) ([]domain.PaperTrade, error) {
	q := p.db.WithContext(ctx).Order("entry_time, id")
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	var rows []tradeRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("storage.ListTrades: %w", err)
	}
	out := make([]domain.PaperTrade, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromTradeRow(r))
	}
	return out, nil
}

// SaveCycle persiste el resumen de un ciclo.
func (p *PostgresStorage) SaveCycle(ctx context.Context, c domain.ScanCycle) error {
	row := cycleRow{
		ID:            c.ID,
		StartedAt:     c.StartedAt.UTC(),
		DurationMs:    c.Duration.Milliseconds(),
		Tickers:       c.Tickers,
		Quotes:        c.Quotes,
		Signals:       c.Signals,
		Duplicates:    c.Duplicates,
		Notified:      c.Notified,
		TradesOpened:  c.TradesOpened,
		TradesClosed:  c.TradesClosed,
		TradesSkipped: c.TradesSkipped,
		FetchErrors:   c.FetchErrors,
	}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("storage.SaveCycle: %w", err)
	}
	return nil
}

// RecentCycles devuelve los últimos ciclos, el más reciente primero.
func (p *PostgresStorage) RecentCycles(ctx context.Context, limit int) ([]domain.ScanCycle, error) {
	var rows []cycleRow
	if err := p.db.WithContext(ctx).Order("started_at DESC").Limit(limitOrDefault(limit)).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("storage.RecentCycles: %w", err)
	}
	out := make([]domain.ScanCycle, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.ScanCycle{
			ID:            r.ID,
			StartedAt:     r.StartedAt.UTC(),
			Duration:      time.Duration(r.DurationMs) * time.Millisecond,
			Tickers:       r.Tickers,
			Quotes:        r.Quotes,
			Signals:       r.Signals,
			Duplicates:    r.Duplicates,
			Notified:      r.Notified,
			TradesOpened:  r.TradesOpened,
			TradesClosed:  r.TradesClosed,
			TradesSkipped: r.TradesSkipped,
			FetchErrors:   r.FetchErrors,
		})
	}
	return out, nil
}

// Close cierra el pool de conexiones.
func (p *PostgresStorage) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// --- mapping ---

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func toSignalRow(s domain.Signal) signalRow {
	row := signalRow{
		ID:                s.ID,
		DetectedAt:        s.DetectedAt.UTC(),
		Underlying:        s.Underlying,
		Symbol:            s.Symbol,
		OptionType:        string(s.Type),
		Strike:            s.Strike,
		Expiration:        s.Expiration.UTC(),
		Multiplier:        s.Multiplier,
		UnderlyingPrice:   s.UnderlyingPrice,
		Volume:            s.Volume,
		OpenInterest:      s.OpenInterest,
		Last:              s.Last,
		Bid:               s.Bid,
		Ask:               s.Ask,
		Delta:             s.Greeks.Delta,
		Gamma:             s.Greeks.Gamma,
		Theta:             s.Greeks.Theta,
		Vega:              s.Greeks.Vega,
		Rho:               s.Greeks.Rho,
		ImpliedVol:        s.Greeks.ImpliedVol,
		DTE:               s.DTE,
		Premium:           s.Premium,
		VolumeOIRatio:     s.VolumeOIRatio,
		SpreadPercent:     s.SpreadPercent,
		MoneynessPercent:  s.MoneynessPercent,
		MoneynessCategory: string(s.MoneynessCategory),
		Strength:          string(s.Strength),
		PreferredOTM:      s.PreferredOTM,
	}
	if !s.QuotedAt.IsZero() {
		row.QuotedAt = domain.Time(s.QuotedAt.UTC())
	}
	return row
}

func fromSignalRow(r signalRow) domain.Signal {
	s := domain.Signal{
		ID:              r.ID,
		DetectedAt:      r.DetectedAt.UTC(),
		Underlying:      r.Underlying,
		Symbol:          r.Symbol,
		Type:            domain.OptionType(r.OptionType),
		Strike:          r.Strike,
		Expiration:      r.Expiration.UTC(),
		Multiplier:      r.Multiplier,
		UnderlyingPrice: r.UnderlyingPrice,
		Volume:          r.Volume,
		OpenInterest:    r.OpenInterest,
		Last:            r.Last,
		Bid:             r.Bid,
		Ask:             r.Ask,
		Greeks: domain.Greeks{
			Delta:      r.Delta,
			Gamma:      r.Gamma,
			Theta:      r.Theta,
			Vega:       r.Vega,
			Rho:        r.Rho,
			ImpliedVol: r.ImpliedVol,
		},
		DTE:               r.DTE,
		Premium:           r.Premium,
		VolumeOIRatio:     r.VolumeOIRatio,
		SpreadPercent:     r.SpreadPercent,
		MoneynessPercent:  r.MoneynessPercent,
		MoneynessCategory: domain.MoneynessCategory(r.MoneynessCategory),
		Strength:          domain.Strength(r.Strength),
		PreferredOTM:      r.PreferredOTM,
	}
	if r.QuotedAt != nil {
		s.QuotedAt = r.QuotedAt.UTC()
	}
	return s
}

func toTradeRow(t domain.PaperTrade) tradeRow {
	row := tradeRow{
		ID:                   t.ID,
		SignalID:             t.SignalID,
		Symbol:               t.Symbol,
		Underlying:           t.Underlying,
		OptionType:           string(t.Type),
		Expiration:           t.Expiration.UTC(),
		Multiplier:           t.Multiplier,
		Direction:            string(t.Direction),
		Quantity:             t.Quantity,
		EntryPrice:           t.EntryPrice,
		EntryUnderlyingPrice: t.EntryUnderlyingPrice,
		EntryTime:            t.EntryTime.UTC(),
		Status:               string(t.Status),
		LastPrice:            t.LastPrice,
		LastUnderlyingPrice:  t.LastUnderlyingPrice,
		UnrealizedPnL:        t.UnrealizedPnL,
		UnrealizedPnLPercent: t.UnrealizedPnLPercent,
		LastMarkedAt:         t.LastMarkedAt,
		MaxPnL:               t.MaxPnL,
		MinPnL:               t.MinPnL,
		MaxPnLPercent:        t.MaxPnLPercent,
		MinPnLPercent:        t.MinPnLPercent,
		ExitPrice:            t.ExitPrice,
		ExitUnderlyingPrice:  t.ExitUnderlyingPrice,
		ExitTime:             t.ExitTime,
		PnL:                  t.PnL,
		PnLPercent:           t.PnLPercent,
	}
	if t.ExitReason != "" {
		reason := string(t.ExitReason)
		row.ExitReason = &reason
	}
	return row
}

func fromTradeRow(r tradeRow) domain.PaperTrade {
	t := domain.PaperTrade{
		ID:                   r.ID,
		SignalID:             r.SignalID,
		Symbol:               r.Symbol,
		Underlying:           r.Underlying,
		Type:                 domain.OptionType(r.OptionType),
		Expiration:           r.Expiration.UTC(),
		Multiplier:           r.Multiplier,
		Direction:            domain.Direction(r.Direction),
		Quantity:             r.Quantity,
		EntryPrice:           r.EntryPrice,
		EntryUnderlyingPrice: r.EntryUnderlyingPrice,
		EntryTime:            r.EntryTime.UTC(),
		Status:               domain.TradeStatus(r.Status),
		LastPrice:            r.LastPrice,
		LastUnderlyingPrice:  r.LastUnderlyingPrice,
		UnrealizedPnL:        r.UnrealizedPnL,
		UnrealizedPnLPercent: r.UnrealizedPnLPercent,
		LastMarkedAt:         r.LastMarkedAt,
		MaxPnL:               r.MaxPnL,
		MinPnL:               r.MinPnL,
		MaxPnLPercent:        r.MaxPnLPercent,
		MinPnLPercent:        r.MinPnLPercent,
		ExitPrice:            r.ExitPrice,
		ExitUnderlyingPrice:  r.ExitUnderlyingPrice,
		ExitTime:             r.ExitTime,
		PnL:                  r.PnL,
		PnLPercent:           r.PnLPercent,
	}
	if r.ExitReason != nil {
		t.ExitReason = domain.ExitReason(*r.ExitReason)
	}
	return t
}
