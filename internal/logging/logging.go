// Package logging configures application-wide structured logging: a colored
// console handler on stderr plus a size-rotated log file under ~/.klix/logs.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

const (
	defaultLogFile = "klix.log"
	maxLogBytes    = 5 * 1024 * 1024
	maxBackups     = 3
)

var (
	mu         sync.Mutex
	configured bool
	level      = new(slog.LevelVar)
	logger     = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
)

// Options controls Configure.
type Options struct {
	Level   slog.Level
	Console bool
	File    bool
	Dir     string // log directory; empty means ~/.klix/logs
	NoColor bool
}

// DefaultOptions returns console+file logging at the level from
// KLIX_LOG_LEVEL (default info).
func DefaultOptions() Options {
	return Options{
		Level:   LevelFromEnv(),
		Console: true,
		File:    true,
	}
}

// LevelFromEnv parses KLIX_LOG_LEVEL, defaulting to info.
func LevelFromEnv() slog.Level {
	return ParseLevel(os.Getenv("KLIX_LOG_LEVEL"))
}

// ParseLevel maps a level name to a slog.Level. Unknown names map to info.
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

// Configure sets up the default logger. Safe to call more than once; only
// the first call takes effect, matching the original module's semantics.
func Configure(opts Options) {
	mu.Lock()
	defer mu.Unlock()
	if configured {
		return
	}
	configured = true
	level.Set(opts.Level)

	var handlers []slog.Handler
	if opts.Console {
		useColor := !opts.NoColor && os.Getenv("NO_COLOR") == "" && isatty.IsTerminal(os.Stderr.Fd())
		handlers = append(handlers, newConsoleHandler(os.Stderr, level, useColor))
	}
	if opts.File {
		fh, err := newFileHandler(opts.Dir)
		if err != nil {
			// Degrade to the remaining handlers rather than failing startup.
			if len(handlers) > 0 {
				slog.New(handlers[0]).Warn("could not create log file", "error", err)
			}
		} else {
			handlers = append(handlers, fh)
		}
	}
	if len(handlers) == 0 {
		handlers = append(handlers, slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: level}))
	}

	logger = slog.New(newMultiHandler(handlers...))
	slog.SetDefault(logger)
}

func newFileHandler(dir string) (slog.Handler, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("finding home directory: %w", err)
		}
		dir = filepath.Join(home, ".klix", "logs")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	w, err := newRotatingWriter(filepath.Join(dir, defaultLogFile), maxLogBytes, maxBackups)
	if err != nil {
		return nil, err
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}), nil
}

// Default returns the configured application logger.
func Default() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Named returns the application logger tagged with a subsystem name.
func Named(name string) *slog.Logger {
	return Default().With("logger", name)
}

// SetLevel changes the log level at runtime.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// LogOperation records the outcome of a named operation at info or error
// level depending on success.
func LogOperation(l *slog.Logger, operation string, success bool, fields ...any) {
	args := append([]any{"operation", operation, "success", success}, fields...)
	if success {
		l.Info("operation completed", args...)
		return
	}
	l.Error("operation failed", args...)
}

// reset is a test hook that clears the configured state.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	configured = false
	level.Set(slog.LevelInfo)
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
