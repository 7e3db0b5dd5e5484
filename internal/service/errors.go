package service

import (
	"errors"
	"fmt"
)

// Sentinel errors mapped onto HTTP statuses by the API layer. Ownership
// misses surface as ErrNotFound so one user can never probe another's data.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation")
)

// Invalid wraps a message as a validation error.
func Invalid(msg string) error { return fmt.Errorf("%w: %s", ErrValidation, msg) }

func isValidationErr(err error) bool { return errors.Is(err, ErrValidation) }
