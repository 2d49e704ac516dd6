// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Setup installs the default slog logger at the given level, writing to
// stderr and, when logFile is non-empty, to that file as well. It returns
// a closer for the file handle.
func Setup(level, logFile string) (func(), error) {
	var w io.Writer = os.Stderr
	closer := func() {}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		w = io.MultiWriter(os.Stderr, f)
		closer = func() { f.Close() }
	}

	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	slog.SetDefault(slog.New(h))
	return closer, nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
