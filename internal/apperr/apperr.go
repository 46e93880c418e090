// Package apperr holds the error taxonomy shared by the store, services and
// HTTP boundary.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound also covers records owned by someone else.
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrEmailTaken      = errors.New("email already registered")
	ErrInactive        = errors.New("account is deactivated")
)

// DependencyError reports that the store was unreachable, timed out or
// failed unexpectedly.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: dependency failure: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// Dependency wraps err unless it already carries a domain meaning.
func Dependency(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrEmailTaken) {
		return err
	}
	var de *DependencyError
	if errors.As(err, &de) {
		return err
	}
	return &DependencyError{Op: op, Err: err}
}

func IsDependency(err error) bool {
	var de *DependencyError
	return errors.As(err, &de)
}

// IsTimeout reports whether err stems from a deadline on the store boundary.
func IsTimeout(err error) bool { return errors.Is(err, context.DeadlineExceeded) }
