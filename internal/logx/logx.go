// Package logx builds the process logger.
//
// The TUI owns the terminal, so logs never go to stderr: they are appended to the file named by DIFFKIT_LOG_FILE,
// and discarded when it is unset or cannot be opened.
package logx

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvFile names the log file.
const EnvFile = "DIFFKIT_LOG_FILE"

// EnvLevel sets the level: debug, info, warn or error. Default info.
const EnvLevel = "DIFFKIT_LOG_LEVEL"

// New returns a logger configured from the environment and a function that closes its file.
func New() (*slog.Logger, func() error) {
	path := os.Getenv(EnvFile)
	if path == "" {
		return Discard(), func() error { return nil }
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return Discard(), func() error { return nil }
	}
	return NewWriter(f, ParseLevel(os.Getenv(EnvLevel))), f.Close
}

// NewWriter returns a text logger writing to w.
func NewWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel maps a level name to a slog level; unknown names are info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
