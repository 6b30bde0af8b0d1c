package app

import (
	"io"
	"log/slog"
	"strings"
)

// newLogger builds the App's isolated logger from a validated Config. It never
// touches the global logger, so concurrent App instances (tests run several)
// keep their output separate.
func newLogger(cfg *Config, outW io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var handler slog.Handler
	if strings.EqualFold(cfg.LogFormat, "text") {
		handler = slog.NewTextHandler(outW, opts)
	} else {
		handler = slog.NewJSONHandler(outW, opts)
	}
	return slog.New(handler)
}

// parseLevel maps a config level string onto a slog.Level. Anything the CLI
// validation did not catch falls back to info rather than failing a run over
// a log knob.
func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
