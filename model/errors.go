package model

import "errors"

// Structural errors indicate a malformed workflow definition. They are fatal
// to a run and never retried.
var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnboundState      = errors.New("no action bound to state")
)

// Run level errors surfaced to the caller of solve/execute.
var (
	ErrWorkflowExecutionFailed = errors.New("workflow execution failed")
	ErrRecursionLimitExceeded  = errors.New("recursion limit exceeded")
	ErrCircularDependency      = errors.New("circular dependency detected")
	ErrSolveFailed             = errors.New("problem could not be solved")
)

// Registry errors.
var (
	ErrDuplicateName    = errors.New("workflow with this name already registered")
	ErrWorkflowNotFound = errors.New("workflow not found")
)

func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrUnboundState) ||
		errors.Is(err, ErrRecursionLimitExceeded) ||
		errors.Is(err, ErrCircularDependency)
}
