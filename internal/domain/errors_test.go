package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorFormat(t *testing.T) {
	err := NewDomainError("Searcher.Run", ErrNavigation, "results page")
	want := "Searcher.Run: results page: navigation failed"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorFormatNoDetail(t *testing.T) {
	err := NewDomainError("Searcher.Run", ErrBrowser, "")
	want := "Searcher.Run: browser unavailable"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	err := NewDomainError("FileStore.Persist", ErrIO, "/tmp/x")
	if !errors.Is(err, ErrIO) {
		t.Error("errors.Is should match ErrIO")
	}
}

func TestDomainErrorAs(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewDomainError("Searcher.Run", ErrBrowser, "launch"))
	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatal("errors.As should match *DomainError")
	}
	if de.Op != "Searcher.Run" {
		t.Errorf("Op = %q, want %q", de.Op, "Searcher.Run")
	}
}

func TestWrapOp(t *testing.T) {
	assert.NoError(t, WrapOp("op", nil))

	err := WrapOp("persist", ErrIO)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIO))
	assert.Equal(t, "persist: i/o failure", err.Error())
}

func TestMissingParameterError(t *testing.T) {
	err := &MissingParameterError{Name: "query"}
	assert.Equal(t, "missing value for required parameter 'query'", err.Error())
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, CodeInvalidInput, ErrorCodeOf(err))
}

// --- ErrorCode tests ---

func TestErrorCodeOf_DirectSentinel(t *testing.T) {
	assert.Equal(t, CodeBrowser, ErrorCodeOf(ErrBrowser))
	assert.Equal(t, CodeNavigation, ErrorCodeOf(ErrNavigation))
	assert.Equal(t, CodeIO, ErrorCodeOf(ErrIO))
	assert.Equal(t, CodeToolApprovalDenied, ErrorCodeOf(ErrToolApprovalDenied))
}

func TestErrorCodeOf_DomainError(t *testing.T) {
	err := NewDomainError("Registry.Get", ErrToolNotFound, "web_search")
	assert.Equal(t, CodeToolNotFound, ErrorCodeOf(err))
	assert.Equal(t, CodeToolNotFound, err.Code())
}

func TestErrorCodeOf_PrefersNavigationOverTimeout(t *testing.T) {
	inner := fmt.Errorf("%w: %w", ErrTimeout, errors.New("deadline exceeded"))
	err := fmt.Errorf("load results: %w: %w", ErrNavigation, inner)
	assert.Equal(t, CodeNavigation, ErrorCodeOf(err))
}

func TestErrorCodeOf_Unknown(t *testing.T) {
	assert.Equal(t, CodeUnknown, ErrorCodeOf(nil))
	assert.Equal(t, CodeUnknown, ErrorCodeOf(errors.New("boom")))
}
