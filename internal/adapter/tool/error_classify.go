package tool

import (
	"errors"
	"strings"

	"websift/internal/domain"
)

// retryableSentinels are failures caused by the browser or the network
// rather than by the request.
var retryableSentinels = []error{
	domain.ErrTimeout,
	domain.ErrBrowser,
	domain.ErrNavigation,
}

// permanentSentinels win over every other match.
var permanentSentinels = []error{
	domain.ErrInvalidInput,
	domain.ErrToolApprovalDenied,
	domain.ErrURLBlocked,
}

// retryablePatterns are checked case-insensitively against the error text
// of errors that carry no sentinel.
var retryablePatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"err_name_not_resolved",
	"err_connection",
	"err_timed_out",
	"timeout",
	"deadline exceeded",
	"temporarily unavailable",
	"service unavailable",
	"try again",
}

// classifyToolError reports whether a failed call may succeed if the host
// repeats it. Nothing in this module retries.
func classifyToolError(err error) bool {
	if err == nil {
		return false
	}
	for _, sentinel := range permanentSentinels {
		if errors.Is(err, sentinel) {
			return false
		}
	}
	for _, sentinel := range retryableSentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}

	lower := strings.ToLower(err.Error())
	for _, p := range retryablePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
