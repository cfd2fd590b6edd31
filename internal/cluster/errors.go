package cluster

import (
	"errors"
	"fmt"
)

var (
	// ErrUsage marks a wrong argument count, unknown verb or unknown
	// behavior keyword. Nothing has been done when it is returned.
	ErrUsage = errors.New("usage error")

	// ErrEmptyRoster is returned by whole-cluster operations when the roster
	// is missing or has no members. No member has been touched.
	ErrEmptyRoster = errors.New("cluster roster is missing or empty")

	// ErrConvergenceTimeout marks a member that did not reach the target
	// state in time and was not forced.
	ErrConvergenceTimeout = errors.New("member did not converge")

	// ErrDeclined is returned when the operator declines a confirmation.
	// It is a clean abort, not a failure.
	ErrDeclined = errors.New("declined by operator")
)

// ExternalCallError is a failed call to the virtualization platform for one member.
type ExternalCallError struct {
	ID  string
	Op  string
	Err error
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *ExternalCallError) Unwrap() error {
	return e.Err
}

func externalErr(id, op string, err error) error {
	return &ExternalCallError{ID: id, Op: op, Err: err}
}
