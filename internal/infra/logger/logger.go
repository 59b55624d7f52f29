package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"websift/internal/infra/config"
)

// Option adjusts the logger built by New.
type Option func(*options)

type options struct {
	version string
}

// WithVersion tags every record with the build version.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// New creates a configured *slog.Logger tagged with the application name.
// The returned closer function should be deferred to flush/close file handles.
func New(cfg config.LoggerConfig, opts ...Option) (*slog.Logger, func() error, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	writer, closer, err := openOutput(cfg.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("open log output: %w", err)
	}

	hopts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(writer, hopts)
	default:
		handler = slog.NewTextHandler(writer, hopts)
	}

	log := slog.New(handler).With("app", "websift")
	if o.version != "" {
		log = log.With("version", o.version)
	}
	return log, closer, nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// parseLevel converts a string level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// openOutput returns an io.Writer for the specified output target.
// Search reports are written to stdout, so logs default to stderr.
func openOutput(output string) (io.Writer, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout, noop, nil
	case "stderr", "":
		return os.Stderr, noop, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	}
}
