package domain

import (
	"errors"
	"fmt"
)

// ErrUnknownModel is returned when a request names a model that is not loaded.
var ErrUnknownModel = errors.New("unknown model")

// ValidationError rejects a request whose required fields are missing or malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ModelError wraps a failure of the opaque model call. It fails one request
// and leaves shared state untouched.
type ModelError struct {
	Model string
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s: %v", e.Model, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
