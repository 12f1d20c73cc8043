package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alejandrodnm/flowscan/internal/domain"
)

const tradeColumns = `id, signal_id, symbol, underlying, option_type, expiration, multiplier,
	direction, quantity, entry_price, entry_underlying_price, entry_time, status,
	last_price, last_underlying_price, unrealized_pnl, unrealized_pnl_percent, last_marked_at,
	max_pnl, min_pnl, max_pnl_percent, min_pnl_percent,
	exit_price, exit_underlying_price, exit_time, exit_reason, pnl, pnl_percent`

// CreateTrade inserts an open paper trade. The UNIQUE signal_id constraint
// turns a second entry for the same signal into domain.ErrTradeExists.
func (s *SQLiteStorage) CreateTrade(ctx context.Context, t domain.PaperTrade) (domain.PaperTrade, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO paper_trades (signal_id, symbol, underlying, option_type, expiration, multiplier,
		                          direction, quantity, entry_price, entry_underlying_price, entry_time, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.SignalID, t.Symbol, t.Underlying, string(t.Type), fmtTime(t.Expiration), t.Multiplier,
		string(t.Direction), t.Quantity, t.EntryPrice, t.EntryUnderlyingPrice, fmtTime(t.EntryTime),
		string(t.Status),
	)
	if isUniqueViolation(err) {
		return domain.PaperTrade{}, fmt.Errorf("storage.CreateTrade: signal %d: %w", t.SignalID, domain.ErrTradeExists)
	}
	if err != nil {
		return domain.PaperTrade{}, fmt.Errorf("storage.CreateTrade: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.PaperTrade{}, fmt.Errorf("storage.CreateTrade: last insert id: %w", err)
	}
	t.ID = id
	return t, nil
}

// UpdateTrade overwrites marks, extrema and exit fields in one statement,
// so a trade is either fully updated or left as it was. Only open rows are
// written: a closed or expired trade returns domain.ErrTradeNotOpen.
func (s *SQLiteStorage) UpdateTrade(ctx context.Context, t domain.PaperTrade) error {
	var exitReason any
	if t.ExitReason != "" {
		exitReason = string(t.ExitReason)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE paper_trades SET
			status = ?, last_price = ?, last_underlying_price = ?,
			unrealized_pnl = ?, unrealized_pnl_percent = ?, last_marked_at = ?,
			max_pnl = ?, min_pnl = ?, max_pnl_percent = ?, min_pnl_percent = ?,
			exit_price = ?, exit_underlying_price = ?, exit_time = ?, exit_reason = ?,
			pnl = ?, pnl_percent = ?
		WHERE id = ? AND status = ?`,
		string(t.Status), t.LastPrice, t.LastUnderlyingPrice,
		t.UnrealizedPnL, t.UnrealizedPnLPercent, nullTime(t.LastMarkedAt),
		nullFloat(t.MaxPnL), nullFloat(t.MinPnL), nullFloat(t.MaxPnLPercent), nullFloat(t.MinPnLPercent),
		nullFloat(t.ExitPrice), nullFloat(t.ExitUnderlyingPrice), nullTime(t.ExitTime), exitReason,
		nullFloat(t.PnL), nullFloat(t.PnLPercent),
		t.ID, string(domain.TradeOpen),
	)
	if err != nil {
		return fmt.Errorf("storage.UpdateTrade: %d: %w", t.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage.UpdateTrade: %d: %w", t.ID, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.getTradeWhere(ctx, "storage.UpdateTrade", `id = ?`, t.ID); err != nil {
		return err
	}
	return fmt.Errorf("storage.UpdateTrade: %d: %w", t.ID, domain.ErrTradeNotOpen)
}

// GetTrade devuelve un trade por ID o domain.ErrNotFound.
func (s *SQLiteStorage) GetTrade(ctx context.Context, id int64) (domain.PaperTrade, error) {
	return s.getTradeWhere(ctx, "storage.GetTrade", `id = ?`, id)
}

// GetTradeBySignal devuelve el trade de una señal o domain.ErrNotFound.
func (s *SQLiteStorage) GetTradeBySignal(ctx context.Context, signalID int64) (domain.PaperTrade, error) {
	return s.getTradeWhere(ctx, "storage.GetTradeBySignal", `signal_id = ?`, signalID)
}

// ListTrades returns trades in entry order, filtered by status. Empty status returns all.
func (s *SQLiteStorage) ListTrades(ctx context.Context, status domain.TradeStatus) ([]domain.PaperTrade, error) {
	query := `SELECT ` + tradeColumns + ` FROM paper_trades`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY entry_time, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.ListTrades: query: %w", err)
	}
	defer rows.Close()

	var trades []domain.PaperTrade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.ListTrades: scan row: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (s *SQLiteStorage) getTradeWhere(ctx context.Context, op, where string, arg any) (domain.PaperTrade, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM paper_trades WHERE `+where, arg)
	t, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PaperTrade{}, fmt.Errorf("%s: %v: %w", op, arg, domain.ErrNotFound)
	}
	if err != nil {
		return domain.PaperTrade{}, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

func scanTrade(r rowScanner) (domain.PaperTrade, error) {
	var (
		t                                domain.PaperTrade
		typ, expiration, direction       string
		entryTime, status                string
		lastMarked, exitTime, exitReason sql.NullString
		maxPnL, minPnL, maxPct, minPct   sql.NullFloat64
		exitPrice, exitUnd, pnl, pnlPct  sql.NullFloat64
	)
	if err := r.Scan(
		&t.ID, &t.SignalID, &t.Symbol, &t.Underlying, &typ, &expiration, &t.Multiplier,
		&direction, &t.Quantity, &t.EntryPrice, &t.EntryUnderlyingPrice, &entryTime, &status,
		&t.LastPrice, &t.LastUnderlyingPrice, &t.UnrealizedPnL, &t.UnrealizedPnLPercent, &lastMarked,
		&maxPnL, &minPnL, &maxPct, &minPct,
		&exitPrice, &exitUnd, &exitTime, &exitReason, &pnl, &pnlPct,
	); err != nil {
		return domain.PaperTrade{}, err
	}

	t.Type = domain.OptionType(typ)
	t.Expiration = parseTime(expiration)
	t.Direction = domain.Direction(direction)
	t.EntryTime = parseTime(entryTime)
	t.Status = domain.TradeStatus(status)
	t.LastMarkedAt = scanTime(lastMarked)
	t.MaxPnL = scanFloat(maxPnL)
	t.MinPnL = scanFloat(minPnL)
	t.MaxPnLPercent = scanFloat(maxPct)
	t.MinPnLPercent = scanFloat(minPct)
	t.ExitPrice = scanFloat(exitPrice)
	t.ExitUnderlyingPrice = scanFloat(exitUnd)
	t.ExitTime = scanTime(exitTime)
	t.ExitReason = domain.ExitReason(exitReason.String)
	t.PnL = scanFloat(pnl)
	t.PnLPercent = scanFloat(pnlPct)
	return t, nil
}
