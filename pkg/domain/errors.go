package domain

import "fmt"

// ValidationError reports malformed input or a violated precondition.
// Fields, when non-nil, keys the offending field or question id to a reason.
type ValidationError struct {
	Msg    string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s (%d field errors)", e.Msg, len(e.Fields))
	}
	return e.Msg
}

// ForbiddenError means the caller lacks ownership or an assignment.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string { return e.Msg }

// NotFoundError identifies the missing entity by kind and id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %q not found", e.Kind, e.ID) }

// ConflictError covers mutation of an immutable submitted response and
// duplicate submissions.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// ClosedCertificationError is distinct from ValidationError so callers can
// render "this certification is closed" rather than a form error.
type ClosedCertificationError struct {
	CertificationID string
}

func (e *ClosedCertificationError) Error() string {
	return fmt.Sprintf("certification %q is closed", e.CertificationID)
}
