package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch means a value does not fit the declared kind of its field.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrMissingRequiredField means a non-nullable field without default is absent.
	ErrMissingRequiredField = errors.New("missing required field")
	// ErrUnknownEnumToken means a stored enum token has no mapping in the schema.
	ErrUnknownEnumToken = errors.New("unknown enum token")
	// ErrUnknownField means a record carries a field the schema does not declare.
	ErrUnknownField = errors.New("unknown field")
)

// FieldError reports which field a codec error was detected on.
type FieldError struct {
	Field string
	Err   error
	Msg   string
}

func fieldErrf(field string, err error, format string, args ...any) error {
	return &FieldError{Field: field, Err: err, Msg: fmt.Sprintf(format, args...)}
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func (e *FieldError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("field %q: %v: %s", e.Field, e.Err, e.Msg)
}
