package domain

import "errors"

var (
	// ErrZeroEntryPrice is returned when a P/L percentage would divide by a non-positive entry.
	ErrZeroEntryPrice = errors.New("entry price must be positive")

	// ErrTradeNotOpen is returned when a transition is attempted on a closed or expired trade.
	ErrTradeNotOpen = errors.New("paper trade is not open")

	// ErrInvalidExitReason is returned for exit reasons outside the known set.
	ErrInvalidExitReason = errors.New("invalid exit reason")

	// ErrDuplicateSignal is returned by storage when the same option symbol was
	// already flagged inside the duplicate window.
	ErrDuplicateSignal = errors.New("duplicate signal within window")

	// ErrTradeExists is returned by storage when a paper trade already references the signal.
	ErrTradeExists = errors.New("paper trade already exists for signal")

	// ErrSignalNotPersisted is returned when a trade is requested for a signal without an ID.
	ErrSignalNotPersisted = errors.New("signal has no persisted identity")

	// ErrNoEntryPrice is returned when a signal has neither a valid midpoint nor a last price.
	ErrNoEntryPrice = errors.New("signal has no usable entry price")

	// ErrNotFound is returned by storage lookups that match no row.
	ErrNotFound = errors.New("not found")
)
