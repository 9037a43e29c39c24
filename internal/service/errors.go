package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies workflow failures so handlers can map them to HTTP
// statuses without string matching.
type ErrorKind string

const (
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindForbidden          ErrorKind = "FORBIDDEN"
	KindInvalidTransition  ErrorKind = "INVALID_TRANSITION"
	KindValidationFailed   ErrorKind = "VALIDATION_FAILED"
	KindPreconditionFailed ErrorKind = "PRECONDITION_FAILED"
	KindDependencyFailure  ErrorKind = "DEPENDENCY_FAILURE"
)

// WorkflowError carries a kind and a human-readable reason. The reason strings
// are surfaced to API callers directly and are part of the contract.
type WorkflowError struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *WorkflowError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *WorkflowError) Unwrap() error { return e.Err }

// KindOf extracts the ErrorKind from an error chain, or "" for plain errors.
func KindOf(err error) ErrorKind {
	var we *WorkflowError
	if errors.As(err, &we) {
		return we.Kind
	}
	return ""
}

func errNotFound(format string, args ...any) error {
	return &WorkflowError{Kind: KindNotFound, Reason: fmt.Sprintf(format, args...)}
}

func errForbidden(format string, args ...any) error {
	return &WorkflowError{Kind: KindForbidden, Reason: fmt.Sprintf(format, args...)}
}

func errInvalidTransition(format string, args ...any) error {
	return &WorkflowError{Kind: KindInvalidTransition, Reason: fmt.Sprintf(format, args...)}
}

func errValidation(format string, args ...any) error {
	return &WorkflowError{Kind: KindValidationFailed, Reason: fmt.Sprintf(format, args...)}
}

func errPrecondition(format string, args ...any) error {
	return &WorkflowError{Kind: KindPreconditionFailed, Reason: fmt.Sprintf(format, args...)}
}

func errDependency(reason string, cause error) error {
	return &WorkflowError{Kind: KindDependencyFailure, Reason: reason, Err: cause}
}
