package metadata

import (
	"errors"
	"fmt"
)

var (
	// ErrAngleUnavailable is returned when an angle is read without its presence flag set.
	ErrAngleUnavailable = errors.New("metadata: angle not available")

	// ErrInvalidDescriptor wraps every construction failure.
	ErrInvalidDescriptor = errors.New("metadata: invalid descriptor")

	// ErrUnknownType is returned for tags outside the known vocabulary.
	ErrUnknownType = errors.New("metadata: unknown type")
)

// PreconditionError reports an accessor called while its presence flag is false.
type PreconditionError struct {
	Field string
	Err   error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %v (check Has%s first)", e.Field, e.Err, e.Field)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidDescriptor, fmt.Sprintf(format, args...))
}
