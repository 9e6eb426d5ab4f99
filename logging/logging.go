// Package logging is the ambient logging convention shared by manager/,
// sandbox/, and strategy/: a package-level JSON logger plus a
// per-session child logger carrying session_id on every record. Grounded
// on PabloGalante-farum_agent/internal/observability/logger.go's
// package-level slog.New(slog.NewJSONHandler(...)) plus WithFields
// pattern.
package logging

import (
	"log/slog"
	"os"
)

var logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))

// Logger returns the shared base logger.
func Logger() *slog.Logger {
	return logger
}

// SetOutput replaces the base logger (e.g. so tests can capture output).
// Loggers already returned by ForSession keep the previous one.
func SetOutput(l *slog.Logger) {
	logger = l
}

// ForSession returns a child logger that annotates every record with
// session_id, for use by a strategy's Run or anything else scoped to one
// session.
func ForSession(sessionID string) *slog.Logger {
	return logger.With("session_id", sessionID)
}
