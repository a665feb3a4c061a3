// Package errs defines the error kinds surfaced by the progression engine.
// Callers match them with errors.As; none of them is fatal.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError indicates learner input that failed a precondition
// (short submission, score out of range, self-evaluation, ...).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// Invalid is shorthand for constructing a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// LockedAccessError indicates an attempt to act on a node, module or course
// whose predecessors are incomplete. Blocking lists what must be completed
// first, in curriculum order.
type LockedAccessError struct {
	Scope    string // roadmap or quest id
	Target   string // node id, module index, ...
	Blocking []string
}

func (e *LockedAccessError) Error() string {
	msg := fmt.Sprintf("%s/%s is locked", e.Scope, e.Target)
	if len(e.Blocking) > 0 {
		msg += "; complete " + strings.Join(e.Blocking, ", ") + " first"
	}
	return msg
}

// RemoteSyncError indicates a durable write or remote call failed. The
// operation it wraps left local state unchanged.
type RemoteSyncError struct {
	Op  string
	Err error
}

func (e *RemoteSyncError) Error() string {
	return fmt.Sprintf("sync failed during %s: %v", e.Op, e.Err)
}

func (e *RemoteSyncError) Unwrap() error { return e.Err }

// NotFoundError indicates an unknown roadmap, node, course or submission.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// ContentError indicates an authoring defect in curriculum content, such as
// a quiz without questions or a rubric whose weights do not sum to 100.
type ContentError struct {
	Where string
	Err   error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("content defect in %s: %v", e.Where, e.Err)
}

func (e *ContentError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsLocked(err error) bool {
	var target *LockedAccessError
	return errors.As(err, &target)
}

func IsRemoteSync(err error) bool {
	var target *RemoteSyncError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
