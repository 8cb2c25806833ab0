// Package logger owns the process-wide slog instance. Startup code
// initializes it from config and hands it to the services through the
// AppContext; nothing else writes to it directly.
package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/studysync/tutormatch/internal/config"
)

var (
	mu     sync.RWMutex
	logger *slog.Logger
)

// InitFromConfig builds the global logger from app config. Safe to
// call multiple times.
func InitFromConfig(c *config.Config) {
	mu.Lock()
	defer mu.Unlock()
	logger = build(c)
}

// L returns the global logger. Always returns a non-nil instance.
func L() *slog.Logger {
	mu.RLock()
	if logger != nil {
		defer mu.RUnlock()
		return logger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = build(nil)
	}
	return logger
}

func build(c *config.Config) *slog.Logger {
	level, format, component := "info", "text", ""
	source := false
	if c != nil {
		level = c.Log.Level
		format = strings.ToLower(c.Log.Format)
		component = c.Log.Component
		source = c.Log.Source
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: source,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && format != "json" {
				return slog.String(slog.TimeKey, time.Now().Format("2006-01-02 15:04:05"))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	l := slog.New(handler)
	if component != "" {
		l = l.With("component", component)
	}
	return l
}

func parseLevel(s string) slog.Leveler {
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
