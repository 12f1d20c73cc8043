package domain

import "time"

// ScanCycle is the lightweight record of one scheduler tick.
type ScanCycle struct {
	ID            string // uuid
	StartedAt     time.Time
	Duration      time.Duration
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
