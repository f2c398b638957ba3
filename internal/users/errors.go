package users

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned by every operation when no principal is present.
	ErrUnauthorized = errors.New("unauthorized")

	ErrValidation   = errors.New("validation failed")
	ErrEmailTaken   = errors.New("email already in use")
	ErrNotFound     = errors.New("user not found")
	ErrStoreFailure = errors.New("store failure")
)

func storeFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreFailure, op, err)
}
