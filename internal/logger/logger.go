package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/polkiloo/invoicedesk/internal/config"
)

// New creates a slog.Logger from configuration: JSON to stdout unless console output is requested.
func New(cfg *config.Config) *slog.Logger {
	level := ParseLevel(cfg.LogLevel)
	if strings.EqualFold(cfg.LogFormat, "console") {
		return NewConsole(os.Stderr, level)
	}
	return NewJSON(os.Stdout, level)
}

// NewJSON builds a JSON logger writing to w.
func NewJSON(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewConsole builds a colored human-readable logger writing to w.
func NewConsole(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

// ParseLevel maps debug, warn and error names to slog levels; anything else is info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
