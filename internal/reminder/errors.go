package reminder

import (
	"errors"
	"fmt"
)

// ValidationError rejects malformed input at creation time, before anything
// reaches the store or the delivery loop.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
