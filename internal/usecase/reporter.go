package usecase

import (
	"context"
	"log/slog"

	"websift/internal/domain"
)

// LogReporter is an ErrorReporter that writes failures to a structured log.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter creates a LogReporter.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// Report logs err at error level with its stage, code and run ID.
func (r *LogReporter) Report(ctx context.Context, stage string, err error) {
	if err == nil {
		return
	}
	attrs := []any{
		"stage", stage,
		"code", domain.ErrorCodeOf(err),
		"error", err,
	}
	if id := domain.RunIDFromContext(ctx); id != "" {
		attrs = append(attrs, "run_id", id)
	}
	r.logger.ErrorContext(ctx, "Error "+stage, attrs...)
}
