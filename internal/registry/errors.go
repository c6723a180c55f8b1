package registry

import (
	"errors"
	"fmt"
)

// Registry errors. The API layer maps these to structured 4xx responses.
var (
	// ErrNotFound is returned when no provider exists for the given id.
	ErrNotFound = errors.New("registry: provider not found")

	// ErrDuplicate is returned when creating a provider whose id is taken.
	ErrDuplicate = errors.New("registry: provider already exists")

	// ErrImmutable is returned when an update tries to change id or type.
	ErrImmutable = errors.New("registry: id and type are immutable")

	// ErrInvalidSpec is returned when a create or update payload is malformed.
	ErrInvalidSpec = errors.New("registry: invalid provider spec")
)

// InvalidSpecError carries the concrete reason a spec was rejected.
type InvalidSpecError struct {
	Reason string
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("registry: invalid provider spec: %s", e.Reason)
}

// Unwrap lets errors.Is(err, ErrInvalidSpec) match.
func (e *InvalidSpecError) Unwrap() error {
	return ErrInvalidSpec
}

func invalidSpec(format string, args ...any) error {
	return &InvalidSpecError{Reason: fmt.Sprintf(format, args...)}
}
