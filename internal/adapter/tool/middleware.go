// Package tool exposes the search pipeline as host-invocable tools.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"websift/internal/domain"
	"websift/internal/infra/tracer"
)

// Execute runs one tool call: open a span, decode params into P, run the
// handler and turn its outcome into a ToolResult.
//
// The handler may return:
//   - (string, nil): a plain-text result
//   - (*domain.ToolResult, nil): returned as-is
//   - (any other value, nil): marshaled as indented JSON
//   - (nil, error): an error result; transient failures are flagged
//     IsRetryable as a hint to the host
//
// Execute itself never returns a non-nil error.
func Execute[P any](
	ctx context.Context,
	spanName string,
	logger *slog.Logger,
	rawParams json.RawMessage,
	handler func(ctx context.Context, span trace.Span, params P) (any, error),
) (*domain.ToolResult, error) {
	ctx, span := tracer.StartSpan(ctx, spanName,
		trace.WithAttributes(tracer.StringAttr("tool.name", spanName)),
	)
	defer span.End()

	var p P
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, &p); err != nil {
			tracer.RecordError(span, err)
			return InvalidInputResult("invalid params: %v", err), nil
		}
	}

	result, err := handler(ctx, span, p)
	if err != nil {
		tracer.RecordError(span, err)
		logger.Warn(spanName+" failed", "code", domain.ErrorCodeOf(err), "error", err)

		retryable := classifyToolError(err)
		content := err.Error()
		if retryable {
			content += " (transient error, may succeed on retry)"
		}
		return &domain.ToolResult{
			IsError:     true,
			IsRetryable: retryable,
			Content:     content,
			Code:        domain.ErrorCodeOf(err),
		}, nil
	}

	return formatResult(span, result)
}

func formatResult(span trace.Span, result any) (*domain.ToolResult, error) {
	switch v := result.(type) {
	case *domain.ToolResult:
		if v.IsError {
			tracer.RecordError(span, errors.New(v.Content))
		} else {
			tracer.SetOK(span)
		}
		return v, nil
	case string:
		tracer.SetOK(span)
		return &domain.ToolResult{Content: v}, nil
	default:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			tracer.RecordError(span, err)
			return &domain.ToolResult{
				IsError: true,
				Content: fmt.Sprintf("failed to format response: %v", err),
			}, nil
		}
		tracer.SetOK(span)
		return &domain.ToolResult{Content: string(data)}, nil
	}
}

// ErrResult builds an error ToolResult for failures the caller should see
// but that are not worth a warning log, such as bad input or a denial.
func ErrResult(format string, args ...any) *domain.ToolResult {
	return &domain.ToolResult{
		IsError: true,
		Content: fmt.Sprintf(format, args...),
	}
}

// InvalidInputResult is ErrResult tagged as a caller mistake.
func InvalidInputResult(format string, args ...any) *domain.ToolResult {
	r := ErrResult(format, args...)
	r.Code = domain.CodeInvalidInput
	return r
}

// MissingParamResult reports a required parameter the caller left out.
func MissingParamResult(name string) *domain.ToolResult {
	err := &domain.MissingParameterError{Name: name}
	return &domain.ToolResult{
		IsError: true,
		Content: err.Error() + ". Please retry with a complete request.",
		Code:    domain.ErrorCodeOf(err),
	}
}
