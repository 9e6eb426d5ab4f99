// Package errs defines the runtime's error taxonomy: a single typed error
// value carrying a Kind tag, modeled on the LLM client's own
// SDKError/ProviderError shape (llm.SDKError) rather than sentinel string
// errors.
package errs

import (
	"errors"
	"fmt"
)

// Kind enumerates the error taxonomy from spec.md §7.
type Kind string

const (
	InvalidInput       Kind = "INVALID_INPUT"
	UnsupportedFormat  Kind = "UNSUPPORTED_FORMAT"
	ExecutorUnavailable Kind = "EXECUTOR_UNAVAILABLE"
	LLMFailed          Kind = "LLM_FAILED"
	Timeout            Kind = "TIMEOUT"
	InvalidState       Kind = "INVALID_STATE"
	UnknownSession     Kind = "UNKNOWN_SESSION"
	SessionNotReady    Kind = "SESSION_NOT_READY"
	Cancelled          Kind = "CANCELLED"
)

// RuntimeError is the single error type raised across component boundaries.
// Callers branch on Kind via errors.As, not on message text.
type RuntimeError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *RuntimeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RuntimeError) Unwrap() error { return e.Cause }

// New builds a RuntimeError with no wrapped cause.
func New(kind Kind, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a RuntimeError around an existing error.
func Wrap(kind Kind, cause error, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind of err if it is (or wraps) a *RuntimeError, and
// reports whether one was found.
func KindOf(err error) (Kind, bool) {
	var re *RuntimeError
	if !errors.As(err, &re) {
		return "", false
	}
	return re.Kind, true
}
