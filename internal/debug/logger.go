// Package debug provides the CLI's debug logging using log/slog. The
// execution packages never log; only the command layer and the error
// reporter do.
package debug

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

var (
	// logger is the global debug logger instance
	logger = newLogger(os.Stderr, false)
	// enabled indicates if debug logging is enabled
	enabled bool
	// mu protects the logger and enabled flag
	mu sync.RWMutex
)

func newLogger(w io.Writer, enable bool) *slog.Logger {
	level := slog.LevelDebug
	if !enable {
		// above any level that is ever logged
		level = slog.LevelError + 1
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Init initializes the debug logger on stderr. When enable is false every
// record is discarded.
func Init(enable bool) {
	InitWriter(os.Stderr, enable)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, enable bool) {
	mu.Lock()
	defer mu.Unlock()

	enabled = enable
	logger = newLogger(w, enable)
}

// Enabled returns whether debug logging is enabled
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// With returns a logger with the given attributes
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}

// Logger returns the underlying slog.Logger instance
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Op logs the start of a facade operation against backend and returns a
// function that logs its completion with the elapsed time.
func Op(op, backend string) func(err error) {
	l := With("op", op, "backend", backend)
	start := time.Now()
	l.Debug("start")
	return func(err error) {
		if err != nil {
			l.Debug("failed", "elapsed", time.Since(start), "error", err)
			return
		}
		l.Debug("done", "elapsed", time.Since(start))
	}
}
