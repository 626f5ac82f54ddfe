package fleet

import "fmt"

// ValidationError reports malformed or missing mutation fields. It is raised
// before any store or registry access, so it never leaves side effects.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError reports a reference to an unknown vehicle id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return "no such vehicle: " + e.ID }

// StorageError wraps a persistent-store failure. The mutation it interrupted
// was abandoned as a whole: no registry change, no history append, no
// announcement.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}
