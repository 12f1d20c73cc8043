package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alejandrodnm/flowscan/internal/domain"
)

const signalColumns = `id, detected_at, underlying, symbol, option_type, strike, expiration, multiplier,
	underlying_price, volume, open_interest, last, bid, ask,
	delta, gamma, theta, vega, rho, implied_vol, quoted_at,
	dte, premium, volume_oi_ratio, spread_percent, moneyness_percent,
	moneyness_category, strength, preferred_otm`

// SaveSignal persiste la señal y devuelve su ID y DetectedAt asignados.
// Si el mismo símbolo ya se guardó dentro de la ventana devuelve domain.ErrDuplicateSignal.
func (s *SQLiteStorage) SaveSignal(ctx context.Context, sig domain.Signal) (domain.Signal, error) {
	if sig.DetectedAt.IsZero() {
		sig.DetectedAt = s.now()
	}
	sig.DetectedAt = sig.DetectedAt.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("storage.SaveSignal: begin tx: %w", err)
	}
	defer tx.Rollback()

	cutoff := sig.DetectedAt.Add(-s.dupWindow)
	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM signals WHERE symbol = ? AND detected_at > ? LIMIT 1`,
		sig.Symbol, fmtTime(cutoff),
	).Scan(&exists)
	if err == nil {
		return domain.Signal{}, fmt.Errorf("storage.SaveSignal: %s: %w", sig.Symbol, domain.ErrDuplicateSignal)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Signal{}, fmt.Errorf("storage.SaveSignal: duplicate check: %w", err)
	}

	preferred := 0
	if sig.PreferredOTM {
		preferred = 1
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO signals (detected_at, underlying, symbol, option_type, strike, expiration, multiplier,
		                     underlying_price, volume, open_interest, last, bid, ask,
		                     delta, gamma, theta, vega, rho, implied_vol, quoted_at,
		                     dte, premium, volume_oi_ratio, spread_percent, moneyness_percent,
		                     moneyness_category, strength, preferred_otm)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fmtTime(sig.DetectedAt), sig.Underlying, sig.Symbol, string(sig.Type), sig.Strike,
		fmtTime(sig.Expiration), sig.Multiplier,
		sig.UnderlyingPrice, sig.Volume, sig.OpenInterest, sig.Last, sig.Bid, sig.Ask,
		nullFloat(sig.Greeks.Delta), nullFloat(sig.Greeks.Gamma), nullFloat(sig.Greeks.Theta),
		nullFloat(sig.Greeks.Vega), nullFloat(sig.Greeks.Rho), nullFloat(sig.Greeks.ImpliedVol),
		nullQuotedAt(sig),
		sig.DTE, sig.Premium, sig.VolumeOIRatio, sig.SpreadPercent, sig.MoneynessPercent,
		string(sig.MoneynessCategory), string(sig.Strength), preferred,
	)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("storage.SaveSignal: insert %s: %w", sig.Symbol, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Signal{}, fmt.Errorf("storage.SaveSignal: last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Signal{}, fmt.Errorf("storage.SaveSignal: commit: %w", err)
	}

	sig.ID = id
	return sig, nil
}

// GetSignal devuelve una señal por ID o domain.ErrNotFound.
func (s *SQLiteStorage) GetSignal(ctx context.Context, id int64) (domain.Signal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+signalColumns+` FROM signals WHERE id = ?`, id)
	sig, err := scanSignal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Signal{}, fmt.Errorf("storage.GetSignal: %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Signal{}, fmt.Errorf("storage.GetSignal: %w", err)
	}
	return sig, nil
}

// RecentSignals devuelve las últimas señales, la más reciente primero.
func (s *SQLiteStorage) RecentSignals(ctx context.Context, limit int) ([]domain.Signal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+signalColumns+` FROM signals ORDER BY detected_at DESC, id DESC LIMIT ?`,
		limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("storage.RecentSignals: query: %w", err)
	}
	defer rows.Close()

	var signals []domain.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.RecentSignals: scan row: %w", err)
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// rowScanner es el subconjunto común de *sql.Row y *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignal(r rowScanner) (domain.Signal, error) {
	var (
		sig                                 domain.Signal
		detectedAt, expiration, typ         string
		category, strength                  string
		quotedAt                            sql.NullString
		delta, gamma, theta, vega, rho, ivl sql.NullFloat64
		preferred                           int
	)
	if err := r.Scan(
		&sig.ID, &detectedAt, &sig.Underlying, &sig.Symbol, &typ, &sig.Strike, &expiration, &sig.Multiplier,
		&sig.UnderlyingPrice, &sig.Volume, &sig.OpenInterest, &sig.Last, &sig.Bid, &sig.Ask,
		&delta, &gamma, &theta, &vega, &rho, &ivl, &quotedAt,
		&sig.DTE, &sig.Premium, &sig.VolumeOIRatio, &sig.SpreadPercent, &sig.MoneynessPercent,
		&category, &strength, &preferred,
	); err != nil {
		return domain.Signal{}, err
	}

	sig.DetectedAt = parseTime(detectedAt)
	sig.Expiration = parseTime(expiration)
	sig.Type = domain.OptionType(typ)
	sig.MoneynessCategory = domain.MoneynessCategory(category)
	sig.Strength = domain.Strength(strength)
	sig.PreferredOTM = preferred == 1
	sig.Greeks = domain.Greeks{
		Delta:      scanFloat(delta),
		Gamma:      scanFloat(gamma),
		Theta:      scanFloat(theta),
		Vega:       scanFloat(vega),
		Rho:        scanFloat(rho),
		ImpliedVol: scanFloat(ivl),
	}
	if t := scanTime(quotedAt); t != nil {
		sig.QuotedAt = *t
	}
	return sig, nil
}

func nullQuotedAt(sig domain.Signal) any {
	if sig.QuotedAt.IsZero() {
		return nil
	}
	return fmtTime(sig.QuotedAt)
}
