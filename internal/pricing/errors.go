package pricing

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidInput is matched by every *InvalidInputError through errors.Is.
var ErrInvalidInput = errors.New("invalid price input")

// InvalidInputError reports an out-of-domain value passed to the engine.
type InvalidInputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, value, reason string) error {
	return &InvalidInputError{Field: field, Value: value, Reason: reason}
}

func invalidNumber(field string, value float64, reason string) error {
	return invalid(field, strconv.FormatFloat(value, 'f', -1, 64), reason)
}
