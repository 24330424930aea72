package alert

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("alert not found")

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}
