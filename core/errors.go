package core

import "github.com/pkg/errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("permission denied")
	ErrUnauthorized = errors.New("user not authenticated")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// ConflictError reports a write refused because of the current state of the stored data:
// a delete blocked by dependent records, or an attendance key that is already recorded.
// Message is safe to show to users; Err carries the underlying cause for the logs.
type ConflictError struct {
	Message string
	Err     error
}

func NewConflictError(msg string, err error) error {
	return &ConflictError{Message: msg, Err: err}
}

func (err ConflictError) Error() string {
	if err.Err == nil {
		return err.Message
	}
	return err.Message + ": " + err.Err.Error()
}

func (err ConflictError) Cause() error { return err.Err }
func (err ConflictError) Unwrap() error { return err.Err }

// IsConflict reports whether err is, or wraps, a *ConflictError.
func IsConflict(err error) bool {
	for err != nil {
		if _, ok := err.(*ConflictError); ok {
			return true
		}
		c, ok := err.(interface{ Cause() error })
		if !ok {
			return false
		}
		err = c.Cause()
	}
	return false
}

// AsConflict returns the outermost *ConflictError in err's chain.
func AsConflict(err error) (*ConflictError, bool) {
	for err != nil {
		if cerr, ok := err.(*ConflictError); ok {
			return cerr, true
		}
		c, ok := err.(interface{ Cause() error })
		if !ok {
			return nil, false
		}
		err = c.Cause()
	}
	return nil, false
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
