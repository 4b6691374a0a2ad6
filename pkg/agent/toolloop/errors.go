package toolloop

import "errors"

var (
	// ErrBoundExceeded is returned when the loop runs out of iterations or
	// time before the LLM produced a final answer. It is never retried.
	ErrBoundExceeded = errors.New("reasoning bound exceeded")

	// ErrCanceled indicates the caller's context ended between cycles.
	ErrCanceled = errors.New("reasoning canceled")
)
