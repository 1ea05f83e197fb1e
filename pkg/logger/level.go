package logger

import "log/slog"

// LevelFromFlags maps the --debug and --trace flags onto a slog level.
// trace wins over debug; neither leaves only errors.
func LevelFromFlags(debug, trace bool) slog.Level {
	switch {
	case trace:
		return slog.LevelDebug
	case debug:
		return slog.LevelInfo
	default:
		return slog.LevelError
	}
}
