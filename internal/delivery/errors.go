package delivery

import (
	"errors"
	"fmt"
)

// FailureCode classifies why a delivery could not happen.
type FailureCode string

const (
	// CodeEmptyBody: the message body was empty after trimming.
	CodeEmptyBody FailureCode = "empty_body"

	// CodeEmptyTarget: the target named no chat, no display name,
	// and no addresses.
	CodeEmptyTarget FailureCode = "empty_target"

	// CodeChatNotFound: the target's chat identifier is not
	// automation-addressable and the datastore has no such thread.
	CodeChatNotFound FailureCode = "chat_not_found"

	// CodeExhausted: every applicable strategy failed.
	CodeExhausted FailureCode = "exhausted"
)

// Error is a typed delivery failure. Err holds the last underlying
// automation error, when one exists.
type Error struct {
	Code   FailureCode
	Target string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("delivery failed (%s) for %s", e.Code, e.Target)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// AsError unwraps err into a delivery Error if that is what it is.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
