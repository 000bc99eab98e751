package ftsq

import "github.com/roach88/ftsq/internal/errs"

// Error is the error type returned by every ftsq operation.
type Error = errs.Error

// Code categorizes an Error.
type Code = errs.Code

// Error codes.
const (
	CodeSchema               = errs.CodeSchema
	CodeField                = errs.CodeField
	CodeQuery                = errs.CodeQuery
	CodeDatabase             = errs.CodeDatabase
	CodeConnection           = errs.CodeConnection
	CodeDocumentDoesNotExist = errs.CodeDocumentDoesNotExist
	CodeReadOnly             = errs.CodeReadOnly
)

// IsSchemaError reports whether err is an invalid schema definition.
func IsSchemaError(err error) bool { return errs.IsSchemaError(err) }

// IsFieldError reports whether err names an unknown or missing field, or
// an illegal lookup.
func IsFieldError(err error) bool { return errs.IsFieldError(err) }

// IsQueryError reports whether err is an illegal query composition.
func IsQueryError(err error) bool { return errs.IsQueryError(err) }

// IsDatabaseError reports whether err wraps an engine failure.
func IsDatabaseError(err error) bool { return errs.IsDatabaseError(err) }

// IsConnectionError reports whether err is a writer timeout or an
// exhausted arbiter. Connection errors may be retried.
func IsConnectionError(err error) bool { return errs.IsConnectionError(err) }

// IsNotFound reports whether err is a point lookup miss.
func IsNotFound(err error) bool { return errs.IsNotFound(err) }

// IsReadOnly reports whether err is a write against a read-only index.
func IsReadOnly(err error) bool { return errs.IsReadOnly(err) }
