package model

import "errors"

// ErrorKind is the stable category reported to callers.
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation_failed"
	KindNotFound        ErrorKind = "not_found"
	KindForbidden       ErrorKind = "forbidden"
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindConflict        ErrorKind = "conflict"
	KindUnavailable     ErrorKind = "unavailable"
)

// TaskError represents a domain error for tasks.
type TaskError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e TaskError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e TaskError) Unwrap() error {
	return e.Err
}

// Is matches any TaskError of the same kind, so errors.Is(err, ErrValidation)
// holds for every validation failure.
func (e TaskError) Is(target error) bool {
	t, ok := target.(TaskError)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation      = TaskError{Kind: KindValidation, Message: "validation failed"}
	ErrTaskNotFound    = TaskError{Kind: KindNotFound, Message: "task not found"}
	ErrForbidden       = TaskError{Kind: KindForbidden, Message: "not authorized to access this task"}
	ErrUnauthenticated = TaskError{Kind: KindUnauthenticated, Message: "authentication required"}
	ErrConflict        = TaskError{Kind: KindConflict, Message: "task was modified concurrently"}
	ErrUnavailable     = TaskError{Kind: KindUnavailable, Message: "task store unavailable"}

	ErrTitleRequired       = TaskError{Kind: KindValidation, Message: "title is required"}
	ErrDescriptionRequired = TaskError{Kind: KindValidation, Message: "description is required"}
	ErrTitleTooLong        = TaskError{Kind: KindValidation, Message: "title must be at most 100 characters"}
	ErrDescriptionTooLong  = TaskError{Kind: KindValidation, Message: "description must be at most 1000 characters"}
	ErrInvalidPriority     = TaskError{Kind: KindValidation, Message: "priority must be one of low, medium, high"}
	ErrInvalidStatus       = TaskError{Kind: KindValidation, Message: "status must be one of pending, completed"}
)

// Unavailable wraps a store or collaborator failure.
func Unavailable(message string, err error) error {
	return TaskError{Kind: KindUnavailable, Message: message, Err: err}
}

// KindOf returns the category of err, or "" when err is not a TaskError.
func KindOf(err error) ErrorKind {
	var te TaskError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}
