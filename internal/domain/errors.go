package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur while building and querying the
// data model.
var (
	// ErrDuplicateField indicates that a schema was built with two fields
	// sharing the same name.
	ErrDuplicateField = errors.New("duplicate field")

	// ErrUnknownField indicates that a field name does not exist in the
	// schema it was resolved against.
	ErrUnknownField = errors.New("unknown field")

	// ErrNoKey indicates that a record carried a nil key value where an
	// index required one.
	ErrNoKey = errors.New("no key")

	// ErrDuplicateKey indicates that a unique index saw the same key twice.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrKeyArity indicates that a composite key value had the wrong
	// number of components for the keys it was applied to.
	ErrKeyArity = errors.New("key arity mismatch")

	// ErrTypeMismatch indicates that a value's type doesn't match the
	// field type it was serialized or compared against.
	ErrTypeMismatch = errors.New("type mismatch")
)

// ConversionError represents a failure to convert a raw value to or from
// a field's declared type. It records the field and offending value so
// callers can build precise error records.
type ConversionError struct {
	// Field is the name of the field whose conversion failed.
	Field string

	// Value is the raw value that could not be converted.
	Value any

	// Err is the underlying error that caused the conversion to fail.
	Err error
}

// Error implements the error interface for ConversionError.
func (e *ConversionError) Error() string {
	return fmt.Sprintf("field %s: cannot convert %v: %v", e.Field, e.Value, e.Err)
}

// Unwrap returns the underlying error, supporting errors.Is/As chains.
func (e *ConversionError) Unwrap() error { return e.Err }

// NewConversionError creates a ConversionError for the given field and value.
func NewConversionError(field string, value any, err error) *ConversionError {
	return &ConversionError{Field: field, Value: value, Err: err}
}
