package utils

import "go.uber.org/zap"

// NewLogger returns a zap logger. When debug is true, uses development config
// (human-readable, debug level); otherwise uses production config (JSON, info level).
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// MustLogger is NewLogger that falls back to a no-op logger, for commands that
// should keep working when stderr logging cannot be set up.
func MustLogger(debug bool) *zap.Logger {
	l, err := NewLogger(debug)
	if err != nil {
		return zap.NewNop()
	}
	return l
}
