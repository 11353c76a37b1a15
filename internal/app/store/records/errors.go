// internal/app/store/records/errors.go
package records

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched (via errors.Is) by every *NotFoundError.
var ErrNotFound = errors.New("record not found")

// NotFoundError reports an update or merge that targeted a missing record.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s/%s: record not found", e.Collection, e.ID)
}

// Is lets errors.Is(err, ErrNotFound) succeed.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// StoreError wraps a backend or transport failure. Callers may retry the
// surrounding operation; the integrity operations are idempotent.
type StoreError struct {
	Op         string
	Collection string
	ID         string
	Err        error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("store %s %s/%s: %v", e.Op, e.Collection, e.ID, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Wrap returns err as a *StoreError unless it is nil or already a
// NotFoundError/StoreError.
func Wrap(op, collection, id string, err error) error {
	if err == nil {
		return nil
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Collection: collection, ID: id, Err: err}
}

// IsNotFound reports whether err is (or wraps) a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStoreError reports whether err is (or wraps) a *StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
