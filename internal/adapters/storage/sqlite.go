package storage

// sqlite.go — almacenamiento principal.
//
// Tablas:
//   - `signals`: una fila por señal persistida. Un mismo símbolo no se vuelve a
//     guardar dentro de la ventana de duplicados.
//   - `paper_trades`: como máximo un trade por señal (UNIQUE signal_id).
//   - `scan_cycles`: resumen ligero por ciclo, con prune al arrancar.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/alejandrodnm/flowscan/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS signals (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    detected_at        TEXT    NOT NULL,
    underlying         TEXT    NOT NULL,
    symbol             TEXT    NOT NULL,
    option_type        TEXT    NOT NULL,
    strike             REAL    NOT NULL,
    expiration         TEXT    NOT NULL,
    multiplier         INTEGER NOT NULL DEFAULT 100,
    underlying_price   REAL    NOT NULL DEFAULT 0,
    volume             INTEGER NOT NULL DEFAULT 0,
    open_interest      INTEGER NOT NULL DEFAULT 0,
    last               REAL    NOT NULL DEFAULT 0,
    bid                REAL    NOT NULL DEFAULT 0,
    ask                REAL    NOT NULL DEFAULT 0,
    delta              REAL,
    gamma              REAL,
    theta              REAL,
    vega               REAL,
    rho                REAL,
    implied_vol        REAL,
    quoted_at          TEXT,
    dte                INTEGER NOT NULL,
    premium            REAL    NOT NULL,
    volume_oi_ratio    REAL    NOT NULL,
    spread_percent     REAL    NOT NULL DEFAULT 0,
    moneyness_percent  REAL    NOT NULL DEFAULT 0,
    moneyness_category TEXT    NOT NULL,
    strength           TEXT    NOT NULL,
    preferred_otm      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS paper_trades (
    id                      INTEGER PRIMARY KEY AUTOINCREMENT,
    signal_id               INTEGER NOT NULL UNIQUE REFERENCES signals(id),
    symbol                  TEXT    NOT NULL,
    underlying              TEXT    NOT NULL,
    option_type             TEXT    NOT NULL,
    expiration              TEXT    NOT NULL,
    multiplier              INTEGER NOT NULL DEFAULT 100,
    direction               TEXT    NOT NULL DEFAULT 'long',
    quantity                INTEGER NOT NULL DEFAULT 1,
    entry_price             REAL    NOT NULL,
    entry_underlying_price  REAL    NOT NULL DEFAULT 0,
    entry_time              TEXT    NOT NULL,
    status                  TEXT    NOT NULL DEFAULT 'open',
    last_price              REAL    NOT NULL DEFAULT 0,
    last_underlying_price   REAL    NOT NULL DEFAULT 0,
    unrealized_pnl          REAL    NOT NULL DEFAULT 0,
    unrealized_pnl_percent  REAL    NOT NULL DEFAULT 0,
    last_marked_at          TEXT,
    max_pnl                 REAL,
    min_pnl                 REAL,
    max_pnl_percent         REAL,
    min_pnl_percent         REAL,
    exit_price              REAL,
    exit_underlying_price   REAL,
    exit_time               TEXT,
    exit_reason             TEXT,
    pnl                     REAL,
    pnl_percent             REAL
);

CREATE TABLE IF NOT EXISTS scan_cycles (
    id             TEXT    PRIMARY KEY,
    started_at     TEXT    NOT NULL,
    duration_ms    INTEGER NOT NULL DEFAULT 0,
    tickers        INTEGER NOT NULL DEFAULT 0,
    quotes         INTEGER NOT NULL DEFAULT 0,
    signals        INTEGER NOT NULL DEFAULT 0,
    duplicates     INTEGER NOT NULL DEFAULT 0,
    notified       INTEGER NOT NULL DEFAULT 0,
    trades_opened  INTEGER NOT NULL DEFAULT 0,
    trades_closed  INTEGER NOT NULL DEFAULT 0,
    trades_skipped INTEGER NOT NULL DEFAULT 0,
    fetch_errors   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_signals_symbol_at ON signals(symbol, detected_at);
CREATE INDEX IF NOT EXISTS idx_signals_at        ON signals(detected_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_status     ON paper_trades(status);
CREATE INDEX IF NOT EXISTS idx_cycles_at         ON scan_cycles(started_at DESC);
`

const (
	// Ancho fijo: las comparaciones de texto en SQL respetan el orden temporal.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

	defaultDuplicateWindow = time.Hour
	retentionCycles        = 30 * 24 * time.Hour
)

// Options tunes the SQLite store.
type Options struct {
	DuplicateWindow time.Duration // 0 = 1h
}

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db        *sql.DB
	dupWindow time.Duration
	now       func() time.Time
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada,
// aplica el schema y limpia ciclos antiguos.
func NewSQLiteStorage(path string, opts Options) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	if opts.DuplicateWindow <= 0 {
		opts.DuplicateWindow = defaultDuplicateWindow
	}
	s := &SQLiteStorage{db: db, dupWindow: opts.DuplicateWindow, now: time.Now}
	s.pruneOld(context.Background())
	return s, nil
}

// WithClock replaces the time source used for detection timestamps and the duplicate window.
func (s *SQLiteStorage) WithClock(now func() time.Time) *SQLiteStorage {
	s.now = now
	return s
}

// SaveCycle persiste el resumen de un ciclo.
func (s *SQLiteStorage) SaveCycle(ctx context.Context, c domain.ScanCycle) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_cycles (id, started_at, duration_ms, tickers, quotes, signals, duplicates,
		                         notified, trades_opened, trades_closed, trades_skipped, fetch_errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, fmtTime(c.StartedAt), c.Duration.Milliseconds(), c.Tickers, c.Quotes, c.Signals,
		c.Duplicates, c.Notified, c.TradesOpened, c.TradesClosed, c.TradesSkipped, c.FetchErrors,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveCycle: %w", err)
	}
	return nil
}

// RecentCycles devuelve los últimos ciclos, el más reciente primero.
func (s *SQLiteStorage) RecentCycles(ctx context.Context, limit int) ([]domain.ScanCycle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, duration_ms, tickers, quotes, signals, duplicates,
		       notified, trades_opened, trades_closed, trades_skipped, fetch_errors
		FROM scan_cycles ORDER BY started_at DESC LIMIT ?`, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("storage.RecentCycles: query: %w", err)
	}
	defer rows.Close()

	var cycles []domain.ScanCycle
	for rows.Next() {
		var c domain.ScanCycle
		var started string
		var durMs int64
		if err := rows.Scan(&c.ID, &started, &durMs, &c.Tickers, &c.Quotes, &c.Signals, &c.Duplicates,
			&c.Notified, &c.TradesOpened, &c.TradesClosed, &c.TradesSkipped, &c.FetchErrors); err != nil {
			return nil, fmt.Errorf("storage.RecentCycles: scan row: %w", err)
		}
		c.StartedAt = parseTime(started)
		c.Duration = time.Duration(durMs) * time.Millisecond
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina ciclos antiguos para mantener la DB ligera.
// Signals y trades se conservan: son el histórico de performance.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := s.now().Add(-retentionCycles)
	s.db.ExecContext(ctx, `DELETE FROM scan_cycles WHERE started_at < ?`, fmtTime(cutoff))
}

// --- helpers internos ---

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		// filas escritas a mano o por otra versión
		t, _ = time.Parse(time.RFC3339Nano, v)
	}
	return t.UTC()
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func scanTime(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t := parseTime(v.String)
	return &t
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func scanFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return domain.Float(v.Float64)
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
