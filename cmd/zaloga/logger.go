package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/erazemk/zaloga/internal/config"
)

// levelRouter sends records below ERROR to one handler and ERROR+ to another,
// so operators can split normal output from failures.
type levelRouter struct {
	min    slog.Level
	normal slog.Handler
	errors slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= lr.min
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.errors.Handle(ctx, r)
	}
	return lr.normal.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{min: lr.min, normal: lr.normal.WithAttrs(attrs), errors: lr.errors.WithAttrs(attrs)}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{min: lr.min, normal: lr.normal.WithGroup(name), errors: lr.errors.WithGroup(name)}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func newHandler(format string, w io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// setupLogger installs the default logger. Records below ERROR go to stdout,
// ERROR to stderr, and everything is mirrored to cfg.Log when set. The
// returned cleanup is nil when no file was opened.
func setupLogger(cfg *config.Config) (func(), error) {
	level, err := parseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	var cleanup func()
	out, errOut := io.Writer(os.Stdout), io.Writer(os.Stderr)

	if cfg.Log != "" {
		f, err := os.OpenFile(cfg.Log, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		out = io.MultiWriter(os.Stdout, f)
		errOut = io.MultiWriter(os.Stderr, f)
	}

	slog.SetDefault(slog.New(&levelRouter{
		min:    level,
		normal: newHandler(cfg.Logging.Format, out, level),
		errors: newHandler(cfg.Logging.Format, errOut, level),
	}).With("service", "zaloga"))
	return cleanup, nil
}
