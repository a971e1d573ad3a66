package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger builds the process logger: human-readable text on stderr
// plus a JSON stream appended to logFile for later inspection. The
// returned cleanup closes the file. When the file cannot be opened the
// logger degrades to stderr only and cleanup is a no-op.
func SetupLogger(logFile string, level slog.Level) (*slog.Logger, func() error) {
	stderr := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		slog.Warn("log file unavailable, logging to stderr only", "file", logFile, "error", err)
		return slog.New(stderr), func() error { return nil }
	}

	logger := newDualLogger(stderr, file, level)
	return logger, file.Close
}

// SetupLoggerWithWriters builds the same dual-output logger over
// arbitrary writers. Tests use this to capture both streams.
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	text := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})
	return newDualLogger(text, file, level)
}

func newDualLogger(text slog.Handler, file io.Writer, level slog.Level) *slog.Logger {
	jsonHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(text, jsonHandler))
}
