package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// ParseLevel resolves a configured level name, defaulting unknown values
// to info so a typo in LOG_LEVEL never silences the process.
func ParseLevel(raw string) slog.Level {
	if level, ok := levelNames[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return level
	}
	return slog.LevelInfo
}

// NewJSONLogger builds the process-wide logger. The service attribute
// distinguishes api and worker lines when their output is collected together.
func NewJSONLogger(service, level string) *slog.Logger {
	return NewJSONLoggerTo(os.Stdout, service, level)
}

// NewJSONLoggerTo writes to the given sink; tests use it to capture records.
func NewJSONLoggerTo(w io.Writer, service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler).With(slog.String("service", service))
}
