package ports

// Logger defines the interface for logging.
// It is also the diagnostics sink for integrity dumps and hash-sum reports.
//
//go:generate mockgen -source=logger.go -destination=mocks/mock_logger.go -package=mocks
type Logger interface {
	Info(msg string)
	Warn(msg string)
	Error(err error)
}
