package orchestrator

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an orchestrator failure.
type ErrorKind string

const (
	// KindValidation is an empty or whitespace-only input.
	KindValidation ErrorKind = "validation"
	// KindConfiguration is a missing credential or a failed component construction.
	KindConfiguration ErrorKind = "configuration"
	// KindQuotaExhausted is a backend rate limit or quota failure.
	KindQuotaExhausted ErrorKind = "quota_exhausted"
	// KindToolInvocation is an adapter failure surfaced by the fallback router.
	KindToolInvocation ErrorKind = "tool_invocation"
	// KindReasoningBoundExceeded is an exhausted iteration or time budget.
	KindReasoningBoundExceeded ErrorKind = "reasoning_bound_exceeded"
	// KindBackend is any other backend failure.
	KindBackend ErrorKind = "backend"
)

// Error is a classified orchestrator failure.
//
//	var oe *orchestrator.Error
//	if errors.As(resp.Err, &oe) && oe.Kind == orchestrator.KindQuotaExhausted { ... }
//
// errors.Is(err, &Error{Kind: k}) matches any *Error of kind k.
type Error struct {
	Err     error
	Message string
	Kind    ErrorKind
}

func newError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: err, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same kind and an empty or equal message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return ""
}
