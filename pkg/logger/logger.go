// Package logger provides opinionated logging capabilities for memhandler
package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
)

type config struct {
	level   slog.Level
	pretty  bool
	json    bool
	source  bool
	writers []io.Writer
}

// New creates a *slog.Logger. Plain text output is the default; WithJSON
// switches to structured service logs and WithPretty to the charmbracelet/log
// handler. JSON wins when both are set.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level: slog.LevelInfo,
	}
	for _, opt := range opts {
		opt(c)
	}

	var w io.Writer
	switch len(c.writers) {
	case 0:
		w = os.Stdout
	case 1:
		w = c.writers[0]
	default:
		w = io.MultiWriter(c.writers...)
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     c.level,
		AddSource: c.source,
	}

	switch {
	case c.json:
		return slog.New(slog.NewJSONHandler(w, handlerOpts))

	case c.pretty:
		level := log.InfoLevel
		if c.level <= slog.LevelDebug {
			level = log.DebugLevel
		}

		return slog.New(log.NewWithOptions(w, log.Options{
			Level:           level,
			ReportTimestamp: true,
			ReportCaller:    c.source,
		}))

	default:
		return slog.New(slog.NewTextHandler(w, handlerOpts))
	}
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
