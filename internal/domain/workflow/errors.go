package workflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTransition is returned when the requested edge is not in the adjacency table
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrPermissionDenied is returned when the actor's role may not perform the edge's action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrGuardNotSatisfied is returned when a temporal or eligibility precondition does not hold yet
	ErrGuardNotSatisfied = errors.New("guard not satisfied")

	// ErrAlreadyClaimed is returned when a claim loses the compare-and-set
	ErrAlreadyClaimed = errors.New("already claimed")

	// ErrValidation is returned when a reason code, note or required field is missing
	ErrValidation = errors.New("validation error")
)

// Error is a typed rejection. It unwraps to one of the sentinel errors above.
type Error struct {
	Code     error
	Kind     Kind
	EntityID string
	From     State
	To       State
	Guard    string
	Message  string
	Fields   []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code.Error())
	if e.Kind != "" {
		fmt.Fprintf(&b, " (%s", e.Kind)
		if e.EntityID != "" {
			fmt.Fprintf(&b, " %s", e.EntityID)
		}
		if e.From != "" || e.To != "" {
			fmt.Fprintf(&b, ": %s -> %s", e.From, e.To)
		}
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Code
}

// newError builds a rejection; Transition fills in the request context
func newError(code error, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsRetryable reports whether the rejection may clear up on its own, e.g. a lock period ending
func IsRetryable(err error) bool {
	return errors.Is(err, ErrGuardNotSatisfied)
}

// ErrorCode returns a short stable label for a rejection, or "internal" for anything else
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrGuardNotSatisfied):
		return "guard_not_satisfied"
	case errors.Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	default:
		return "internal"
	}
}
