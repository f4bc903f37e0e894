package domain

import (
	"errors"
	"fmt"
)

// ErrKeyNotFound is returned when a state key is absent from the store.
var ErrKeyNotFound = errors.New("state key not found")

// ErrTurnAborted is returned when the correction loop exhausts its
// attempt budget without a terminal signal.
var ErrTurnAborted = errors.New("turn aborted: correction attempts exhausted")

// ValidationKind classifies why a script stream was rejected.
type ValidationKind string

const (
	ValidationForbidden         ValidationKind = "forbidden_construct"
	ValidationUnknownCapability ValidationKind = "unknown_capability"
	ValidationSyntax            ValidationKind = "malformed_syntax"
)

// ValidationError means the token stream was rejected before or at
// completion. Code holds the accumulated script prefix that proves the
// violation, so it can be cited verbatim in regeneration feedback.
type ValidationError struct {
	Kind   ValidationKind
	Reason string
	Code   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Kind, e.Reason)
}

// ExecutionKind classifies a runtime failure of an accepted script.
type ExecutionKind string

const (
	ExecutionCapabilityFailure ExecutionKind = "capability_failure"
	ExecutionMissingSignal     ExecutionKind = "missing_completion_signal"
)

// ExecutionError means the stream was accepted but execution failed.
// Script holds the full attempted script for feedback purposes.
type ExecutionError struct {
	Kind   ExecutionKind
	Reason string
	Script string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed (%s): %s", e.Kind, e.Reason)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
