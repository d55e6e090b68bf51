package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. JSON output is intended for log
// shipping; any other LOG_FORMAT value falls back to the text handler for
// local runs.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
