package app

import (
	"log/slog"
	"os"
)

// NewLogger selects the slog handler from LOG_FORMAT. JSON output carries
// source locations for log aggregation; the pretty text form stays compact
// for local runs.
func NewLogger(cfg *Config) *slog.Logger {
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
