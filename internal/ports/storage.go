package ports

// Storage is everything the scanner persists, plus Close.
type Storage interface {
	SignalStorage
	TradeStorage
	CycleStorage

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
