// Package hive defines the coded error taxonomy shared by all managers.
// Every rejection carries a stable code, a human message, and — for
// recoverable disclosure/membership errors — guidance naming the exact
// remedial operation the caller should perform.
package hive

import (
	"errors"
	"fmt"
)

// Code identifies an error class. Codes are part of the wire contract.
type Code string

const (
	// Disclosure / identity errors — recoverable by the named remedial call.
	CodeUnregistered   Code = "unregistered"
	CodeStageViolation Code = "stage_violation"

	// Membership errors — recoverable via join_workspace.
	CodeNotMember      Code = "not_member"
	CodeWrongWorkspace Code = "wrong_workspace"

	// Graph invariant violations — rejected before mutation.
	CodeSelfDependency      Code = "self_dependency"
	CodeDuplicateDependency Code = "duplicate_dependency"
	CodeCycle               Code = "cycle"
	CodeAlreadyClaimed      Code = "already_claimed"

	// Workflow violations — rejected before mutation.
	CodeSelfReview     Code = "self_review"
	CodeNotApproved    Code = "not_approved"
	CodeNotCoordinator Code = "not_coordinator"

	// Lookup and input errors.
	CodeNotFound      Code = "not_found"
	CodeInvalidParams Code = "invalid_params"
	CodeUnknownOp     Code = "unknown_operation"

	// Anything that is not the caller's fault.
	CodeInternal Code = "internal"
)

// Error is a coded rejection returned to callers. Context holds
// operation-specific fields that are serialized into the error payload.
type Error struct {
	Code     Code
	Message  string
	Guidance string
	Context  map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Guidance != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Guidance)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates a coded error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Guide attaches remedial guidance and returns the error.
func (e *Error) Guide(format string, args ...any) *Error {
	e.Guidance = fmt.Sprintf(format, args...)
	return e
}

// With attaches a context field and returns the error.
func (e *Error) With(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// NotFound builds the standard not-found error for an entity kind and id.
func NotFound(kind, id string) *Error {
	return New(CodeNotFound, "%s not found: %s", kind, id).With(kind+"Id", id)
}

// CodeOf extracts the code from an error, or CodeInternal for plain errors.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var he *Error
	if errors.As(err, &he) {
		return he.Code
	}
	return CodeInternal
}

// AsError unwraps err into a *Error, or wraps plain errors as internal.
func AsError(err error) *Error {
	var he *Error
	if errors.As(err, &he) {
		return he
	}
	return &Error{Code: CodeInternal, Message: err.Error()}
}
