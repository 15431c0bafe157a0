package oauthclient

import (
	"errors"
	"fmt"
)

// Errno values mirror the OAuth server's error namespace.
type Errno int

const (
	ErrnoUnknownClient     Errno = 101
	ErrnoIncorrectRedirect Errno = 103
	ErrnoInvalidAssertion  Errno = 104
	ErrnoMissingParameter  Errno = 108
	ErrnoInvalidParameter  Errno = 109
)

// Error is a typed OAuth failure. Param names the missing or offending
// request parameter when the errno calls for one.
type Error struct {
	Errno   Errno
	Message string
	Param   string
}

func (e *Error) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s (oauth errno %d, param %q)", e.Message, e.Errno, e.Param)
	}
	return fmt.Sprintf("%s (oauth errno %d)", e.Message, e.Errno)
}

func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Errno == other.Errno
}

func NewError(errno Errno, message string) *Error {
	return &Error{Errno: errno, Message: message}
}

// NewMissingParameter reports an absent required OAuth parameter.
func NewMissingParameter(param string) *Error {
	return &Error{Errno: ErrnoMissingParameter, Message: "missing parameter", Param: param}
}

// NewUnknownClient reports a client_id the OAuth server does not know.
func NewUnknownClient(clientID string) *Error {
	return &Error{Errno: ErrnoUnknownClient, Message: "unknown client", Param: "client_id"}
}

var (
	ErrUnknownClient    = &Error{Errno: ErrnoUnknownClient, Message: "unknown client"}
	ErrMissingParameter = &Error{Errno: ErrnoMissingParameter, Message: "missing parameter"}
)

// IsBadRequest reports whether err is one of the OAuth errors that should
// land the user on the structured bad-request page rather than the generic
// internal-error page, and returns its errno and parameter.
func IsBadRequest(err error) (Errno, string, bool) {
	var oe *Error
	if !errors.As(err, &oe) {
		return 0, "", false
	}
	if oe.Errno == ErrnoMissingParameter || oe.Errno == ErrnoUnknownClient {
		return oe.Errno, oe.Param, true
	}
	return 0, "", false
}
