package logger

import "log/slog"

// Err wraps an error into a slog attribute under the conventional key.
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "err",
		Value: slog.StringValue(err.Error()),
	}
}
