package backend

import "log/slog"

// Logger is the logging interface used across toolgate. *slog.Logger
// satisfies it.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging must be best-effort and must not panic.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// DiscardLogger returns a Logger that drops every record.
func DiscardLogger() Logger {
	return slog.New(slog.DiscardHandler)
}

func loggerOrDiscard(l Logger) Logger {
	if l == nil {
		return DiscardLogger()
	}
	return l
}
