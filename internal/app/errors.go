package app

import "errors"

var (
	// ErrInvalidCredentials is returned when the supplied credentials do not match.
	// The message is shown to end users and must not enable account enumeration.
	ErrInvalidCredentials = errors.New("Invalid email or password")

	ErrEmailAlreadyExists = errors.New("User already exists")

	// ErrForbidden covers operations reserved for the author or project owner.
	ErrForbidden = errors.New("Permission denied")
)

// ValidationError marks bad client input. Handlers map it to 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validation(msg string) error {
	return &ValidationError{Msg: msg}
}

// NotFoundError marks a missing resource. Denied access to project-scoped
// entities is reported the same way so existence does not leak.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

func notFound(resource string) error {
	return &NotFoundError{Resource: resource}
}
