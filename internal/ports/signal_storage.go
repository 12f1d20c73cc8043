package ports

import (
	"context"

	"github.com/alejandrodnm/flowscan/internal/domain"
)

// SignalStorage persists detected signals.
type SignalStorage interface {
	// SaveSignal persists the signal and returns it with ID and DetectedAt assigned.
	// Returns domain.ErrDuplicateSignal if the option symbol was flagged within the duplicate window.
	SaveSignal(ctx context.Context, sig domain.Signal) (domain.Signal, error)

	// GetSignal returns a signal by ID or domain.ErrNotFound.
	GetSignal(ctx context.Context, id int64) (domain.Signal, error)

	// RecentSignals returns the newest signals first.
	RecentSignals(ctx context.Context, limit int) ([]domain.Signal, error)
}

// CycleStorage records one row per scan cycle.
type CycleStorage interface {
	SaveCycle(ctx context.Context, c domain.ScanCycle) error
	RecentCycles(ctx context.Context, limit int) ([]domain.ScanCycle, error)
}
