package logger

// ErrorEntry exposes errorEntry to the black-box tests.
type ErrorEntry = errorEntry

// Error formatting internals exported for testing.
var (
	CollectErrorEntries = collectErrorEntries
	FormatErrorEntries  = formatErrorEntries
)
