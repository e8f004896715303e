package contracts

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField reports an absent mandatory JSON field
	ErrMissingField = errors.New("mandatory field is missing")

	// ErrEmptyNetworkPath reports a hop list that was required but empty
	ErrEmptyNetworkPath = errors.New("network path must contain at least one hop")

	// ErrInvalidIdentifier reports an empty or malformed identifier
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// ParseError describes why a named JSON field could not be parsed
type ParseError struct {
	Field  string
	Reason string
	Err    error
}

// NewParseError creates a parse error for the given field
func NewParseError(field, reason string) *ParseError {
	return &ParseError{Field: field, Reason: reason}
}

// WrapParseError creates a parse error for the given field wrapping a cause
func WrapParseError(field string, err error) *ParseError {
	if err == nil {
		return nil
	}

	var nested *ParseError
	if errors.As(err, &nested) {
		return &ParseError{Field: joinField(field, nested.Field), Reason: nested.Reason, Err: nested.Err}
	}

	return &ParseError{Field: field, Reason: err.Error(), Err: err}
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid JSON: %s", e.Reason)
	}
	return fmt.Sprintf("invalid JSON: field '%s': %s", e.Field, e.Reason)
}

// Unwrap returns the underlying cause
func (e *ParseError) Unwrap() error {
	return e.Err
}

func joinField(parent, child string) string {
	switch {
	case parent == "":
		return child
	case child == "":
		return parent
	case child[0] == '[':
		return parent + child
	default:
		return parent + "." + child
	}
}
