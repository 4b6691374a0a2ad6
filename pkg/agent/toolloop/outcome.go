package toolloop

import (
	"fmt"

	"sentinai/pkg/tools"
)

// OutcomeKind categorizes the result of a toolloop execution.
type OutcomeKind int

const (
	// OutcomeSuccess indicates the LLM produced a final answer.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeLLMError indicates the LLM client failed. Err holds the
	// classified error from the middleware chain.
	OutcomeLLMError

	// OutcomeMaxIterations indicates MaxIterations cycles ran without a
	// final answer. Err wraps ErrBoundExceeded.
	OutcomeMaxIterations

	// OutcomeTimeBudget indicates MaxDuration elapsed between cycles.
	// Err wraps ErrBoundExceeded.
	OutcomeTimeBudget

	// OutcomeCanceled indicates the context was canceled. Err wraps ErrCanceled.
	OutcomeCanceled
)

// String returns human-readable name for OutcomeKind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "Success"
	case OutcomeLLMError:
		return "LLMError"
	case OutcomeMaxIterations:
		return "MaxIterations"
	case OutcomeTimeBudget:
		return "TimeBudget"
	case OutcomeCanceled:
		return "Canceled"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", k)
	}
}

// BoundExceeded reports whether the loop stopped on one of its bounds.
func (k OutcomeKind) BoundExceeded() bool {
	return k == OutcomeMaxIterations || k == OutcomeTimeBudget
}

// Step outcomes recorded in the trace.
const (
	StepSuccess = "success"
	StepError   = "error"
	StepSkipped = "skipped"
)

// Step is one entry of the reasoning trace.
type Step struct {
	Tool      string `json:"tool"`
	Outcome   string `json:"outcome"`
	Detail    string `json:"detail"`
	Iteration int    `json:"iteration"`
}

// Outcome represents the result of a toolloop execution.
//
//nolint:govet // Field order optimized for readability over memory alignment
type Outcome struct {
	// Kind categorizes what happened during the loop.
	Kind OutcomeKind

	// Answer is the final (grounded) answer. Only set for OutcomeSuccess.
	Answer string

	// Err is non-nil for every outcome except OutcomeSuccess.
	Err error

	// Trace lists every tool call in the order it was handled.
	Trace []Step

	// Results holds the successful tool results in execution order.
	Results []tools.Result

	// Iteration is the 1-indexed cycle at which the outcome occurred.
	Iteration int
}
