package ports

import (
	"context"

	"github.com/alejandrodnm/flowscan/internal/domain"
)

// TradeStorage persists paper trades. At most one trade exists per signal.
type TradeStorage interface {
	// CreateTrade inserts an open trade and returns it with ID assigned.
	// Returns domain.ErrTradeExists if the signal already has a trade.
	CreateTrade(ctx context.Context, trade domain.PaperTrade) (domain.PaperTrade, error)

	// UpdateTrade overwrites the mutable fields (marks, extrema, exit) of an open trade.
	// Returns domain.ErrTradeNotOpen if the stored trade is already closed or expired,
	// or domain.ErrNotFound if it does not exist.
	UpdateTrade(ctx context.Context, trade domain.PaperTrade) error

	// GetTrade returns a trade by ID or domain.ErrNotFound.
	GetTrade(ctx context.Context, id int64) (domain.PaperTrade, error)

	// GetTradeBySignal returns the trade for a signal or domain.ErrNotFound.
	GetTradeBySignal(ctx context.Context, signalID int64) (domain.PaperTrade, error)

	// ListTrades returns trades filtered by status; empty status returns all.
	ListTrades(ctx context.Context, status domain.TradeStatus) ([]domain.PaperTrade, error)
}
