// Package errs defines the error taxonomy shared by every ftsq package.
//
// Validation errors (schema, field, query) are programmer errors: they are
// returned before any statement reaches the engine and are never retried.
// Database errors wrap the driver failure untouched. Connection errors are
// recoverable; retrying with backoff is left to the caller.
package errs

import (
	"errors"
	"fmt"
)

// Code categorizes an Error.
type Code string

const (
	// CodeSchema indicates an invalid field or schema definition.
	CodeSchema Code = "SCHEMA_ERROR"

	// CodeField indicates an unknown field, a missing required field or an
	// illegal lookup/field combination.
	CodeField Code = "FIELD_ERROR"

	// CodeQuery indicates an illegal query composition.
	CodeQuery Code = "QUERY_ERROR"

	// CodeDatabase indicates the engine rejected a well-formed statement.
	CodeDatabase Code = "DATABASE_ERROR"

	// CodeConnection indicates a writer acquisition timeout or an exhausted
	// arbiter.
	CodeConnection Code = "CONNECTION_ERROR"

	// CodeDocumentDoesNotExist indicates a point lookup miss.
	CodeDocumentDoesNotExist Code = "DOCUMENT_DOES_NOT_EXIST"

	// CodeReadOnly indicates a write against an index opened read-only.
	CodeReadOnly Code = "INDEX_READ_ONLY"
)

// Error is the single error type returned by ftsq packages.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Field names the schema field involved, if any.
	Field string

	// Index names the logical index involved, if any.
	Index string

	// Err is the wrapped cause (driver error, context error).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field=%s)", e.Field)
	}
	if e.Index != "" {
		msg += fmt.Sprintf(" (index=%s)", e.Index)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code, so errors.Is(err, &Error{Code: c})
// works as a category test.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == "" && t.Field == "" && t.Index == ""
}

// Schema returns a schema error.
func Schema(format string, args ...any) *Error {
	return &Error{Code: CodeSchema, Message: fmt.Sprintf(format, args...)}
}

// Field returns a field error naming field.
func Field(field, format string, args ...any) *Error {
	return &Error{Code: CodeField, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Query returns a query error.
func Query(format string, args ...any) *Error {
	return &Error{Code: CodeQuery, Message: fmt.Sprintf(format, args...)}
}

// Database wraps an engine failure without reinterpreting it.
func Database(index string, err error) *Error {
	return &Error{Code: CodeDatabase, Index: index, Message: "statement failed", Err: err}
}

// Connection returns a connection error naming index.
func Connection(index string, err error, format string, args ...any) *Error {
	return &Error{Code: CodeConnection, Index: index, Message: fmt.Sprintf(format, args...), Err: err}
}

// NotFound returns a document-does-not-exist error.
func NotFound(index string, id int64) *Error {
	return &Error{Code: CodeDocumentDoesNotExist, Index: index, Message: fmt.Sprintf("document %d does not exist", id)}
}

// ReadOnly returns a read-only index error.
func ReadOnly(index string) *Error {
	return &Error{Code: CodeReadOnly, Index: index, Message: "index has been opened in read-only mode"}
}

// HasCode reports whether err (or anything it wraps) is an *Error with code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsSchemaError reports whether err is a schema error.
func IsSchemaError(err error) bool { return HasCode(err, CodeSchema) }

// IsFieldError reports whether err is a field error.
func IsFieldError(err error) bool { return HasCode(err, CodeField) }

// IsQueryError reports whether err is a query error.
func IsQueryError(err error) bool { return HasCode(err, CodeQuery) }

// IsDatabaseError reports whether err is a database error.
func IsDatabaseError(err error) bool { return HasCode(err, CodeDatabase) }

// IsConnectionError reports whether err is a connection error.
func IsConnectionError(err error) bool { return HasCode(err, CodeConnection) }

// IsNotFound reports whether err is a document-does-not-exist error.
func IsNotFound(err error) bool { return HasCode(err, CodeDocumentDoesNotExist) }

// IsReadOnly reports whether err is a read-only index error.
func IsReadOnly(err error) bool { return HasCode(err, CodeReadOnly) }
