package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// setupLogger builds the process logger. Records go to stderr; stdout
// carries protocol frames and must stay clean. A non-nil extra writer
// (the debug log file) receives every record as well.
func setupLogger(level, format string, extra io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: logLevel == slog.LevelDebug,
	}

	newHandler := func(w io.Writer) slog.Handler {
		switch strings.ToLower(format) {
		case "text":
			return slog.NewTextHandler(w, opts)
		default:
			return slog.NewJSONHandler(w, opts)
		}
	}

	handler := newHandler(os.Stderr)
	if extra != nil {
		handler = slogmulti.Fanout(handler, newHandler(extra))
	}

	return slog.New(handler).With(
		"service", appName,
		"version", Version,
		"pid", os.Getpid(),
	)
}

// openDebugLog opens the debug trace file for appending. Failures are
// reported by the caller; the worker runs without the mirror.
func openDebugLog(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}
