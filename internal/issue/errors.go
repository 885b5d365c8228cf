package issue

import (
	"errors"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation     = errors.New("validation failed")
	ErrMissingID      = errors.New("missing issue id")
	ErrNoUpdateFields = errors.New("no update fields")
	ErrNotFound       = errors.New("issue not found")
)

// Client-facing messages.
const (
	MsgRequiredFieldsMissing = "required field(s) missing"
	MsgMissingID             = "missing _id"
	MsgNoUpdateFields        = "no update field(s) sent"
	MsgCouldNotUpdate        = "could not update"
	MsgCouldNotDelete        = "could not delete"
	MsgCouldNotFind          = "could not find"
)

// Error is returned by every failing store operation.
type Error struct {
	// Kind is one of the Err* sentinels.
	Kind error

	// Message is the text reported to the caller.
	Message string

	// ID echoes the issue ID the caller sent. Empty when no ID was supplied.
	ID string
}

// Error implements error.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the error kind.
func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, msg, id string) *Error {
	return &Error{Kind: kind, Message: msg, ID: id}
}

// Kind reports a short label for err, used in metrics and logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrMissingID):
		return "missing_id"
	case errors.Is(err, ErrNoUpdateFields):
		return "no_update_fields"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
