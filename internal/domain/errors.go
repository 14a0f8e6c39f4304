package domain

import "errors"

var (
	ErrInvalidRange    = errors.New("invalid range")
	ErrInvalidCapacity = errors.New("invalid capacity")
)

// ValidationError reports input that can never succeed. Kind is one of the
// Err* sentinels above, or nil for malformed request shape.
type ValidationError struct {
	Kind error
	msg  string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

func NewValidationError(kind error, msg string) error {
	return &ValidationError{Kind: kind, msg: msg}
}

func Invalid(msg string) error {
	return &ValidationError{msg: msg}
}
