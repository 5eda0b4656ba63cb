// Package logger builds the process-wide structured logger. Handlers and
// services receive it by injection; nothing logs through the global default.
package logger

import (
	"log/slog"
	"os"
)

// New returns a slog.Logger tuned for the given environment: JSON output in
// production so log shippers can parse it, text locally.
func New(environment string) *slog.Logger {
	var handler slog.Handler
	if environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(handler)
}
