package domain

import (
	"errors"
	"fmt"
)

// Category sentinels. Every failure surfaced by the search pipeline wraps
// exactly one of these so callers can branch with errors.Is.
var (
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrBrowser      = fmt.Errorf("browser unavailable")
	ErrNavigation   = fmt.Errorf("navigation failed")
	ErrExtraction   = fmt.Errorf("extraction failed")
	ErrIO           = fmt.Errorf("i/o failure")
	ErrTimeout      = fmt.Errorf("operation timed out")
)

// Sentinel errors for the tool host.
var (
	ErrToolNotFound        = fmt.Errorf("tool not found")
	ErrToolApprovalDenied  = fmt.Errorf("tool approval denied")
	ErrToolApprovalTimeout = fmt.Errorf("tool approval timed out")
	ErrURLBlocked          = fmt.Errorf("request to private/reserved address blocked")
	ErrConfigLoad          = fmt.Errorf("failed to load configuration")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Searcher.Run")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// MissingParameterError reports a required parameter that was not supplied.
// It wraps ErrInvalidInput.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing value for required parameter '%s'", e.Name)
}

func (e *MissingParameterError) Unwrap() error { return ErrInvalidInput }

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

const (
	CodeUnknown            ErrorCode = "UNKNOWN"
	CodeInvalidInput       ErrorCode = "INVALID_INPUT"
	CodeBrowser            ErrorCode = "BROWSER"
	CodeNavigation         ErrorCode = "NAVIGATION"
	CodeExtraction         ErrorCode = "EXTRACTION"
	CodeIO                 ErrorCode = "IO"
	CodeTimeout            ErrorCode = "TIMEOUT"
	CodeToolNotFound       ErrorCode = "TOOL_NOT_FOUND"
	CodeToolApprovalDenied ErrorCode = "TOOL_APPROVAL_DENIED"
	CodeToolApprovalTimout ErrorCode = "TOOL_APPROVAL_TIMEOUT"
	CodeURLBlocked         ErrorCode = "URL_BLOCKED"
	CodeConfigLoad         ErrorCode = "CONFIG_LOAD"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrInvalidInput:        CodeInvalidInput,
	ErrBrowser:             CodeBrowser,
	ErrNavigation:          CodeNavigation,
	ErrExtraction:          CodeExtraction,
	ErrIO:                  CodeIO,
	ErrTimeout:             CodeTimeout,
	ErrToolNotFound:        CodeToolNotFound,
	ErrToolApprovalDenied:  CodeToolApprovalDenied,
	ErrToolApprovalTimeout: CodeToolApprovalTimout,
	ErrURLBlocked:          CodeURLBlocked,
	ErrConfigLoad:          CodeConfigLoad,
}

// codePriority fixes the lookup order for wrapped chains that match more
// than one sentinel (a navigation timeout is reported as NAVIGATION).
var codePriority = []error{
	ErrInvalidInput,
	ErrToolApprovalDenied,
	ErrToolApprovalTimeout,
	ErrToolNotFound,
	ErrBrowser,
	ErrNavigation,
	ErrExtraction,
	ErrIO,
	ErrURLBlocked,
	ErrConfigLoad,
	ErrTimeout,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	for _, sentinel := range codePriority {
		if errors.Is(err, sentinel) {
			return errorCodeMap[sentinel]
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	return ErrorCodeOf(e)
}
