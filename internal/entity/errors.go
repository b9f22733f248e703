package entity

import (
	"errors"
	"strings"
)

var (
	ErrFormNotFound     = errors.New("form not found")
	ErrResponseNotFound = errors.New("response not found")
)

type (
	// FieldError names a single failed check
	FieldError struct {
		Field  string `json:"field"`
		Reason string `json:"reason"`
	}

	// ValidationError is returned when input misses required data
	ValidationError struct {
		Message string       `json:"message"`
		Fields  []FieldError `json:"fields,omitempty"`
	}
)

func (e *ValidationError) Add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}

	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Reason
	}

	return e.Message + ": " + strings.Join(parts, "; ")
}

// IsValidation reports whether err carries a ValidationError
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
