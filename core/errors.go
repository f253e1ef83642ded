package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrAuthenticationFailed is deliberately vague: callers must not learn which credential was wrong.
var ErrAuthenticationFailed = errors.New("authentication failed")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is a client-correctable input error (InvalidInput).
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// ConnFailure classifies why the document store could not be reached.
type ConnFailure int

const (
	ConnUnknown ConnFailure = iota
	ConnRefused
	ConnAuthFailed
	ConnTimeout
)

func (f ConnFailure) String() string {
	switch f {
	case ConnRefused:
		return "refused"
	case ConnAuthFailed:
		return "auth-failed"
	case ConnTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ConnectionError is returned to every caller of a failed connect attempt, whatever the Reason.
type ConnectionError struct {
	Reason ConnFailure
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database connection failed (%s): %v", e.Reason, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError wraps a failed store operation. "No document" is never a QueryError.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("database query failed (%s): %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
