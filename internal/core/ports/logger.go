package ports

// Logger defines the interface for logging.
type Logger interface {
	// Debug logs a message visible only at debug level. Aborted work is
	// reported here and nowhere else.
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(err error)
}
