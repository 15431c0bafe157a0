// Package autherrors defines the typed error taxonomy for failures reported
// by the account auth server and by local parameter validation.
package autherrors

import (
	"errors"
	"fmt"
)

// Errno identifies an auth error class. Values mirror the errno namespace of
// the remote account server so that remote and locally raised errors share
// one taxonomy.
type Errno int

const (
	ErrnoAccountAlreadyExists Errno = 101
	ErrnoUnknownAccount       Errno = 102
	ErrnoIncorrectPassword    Errno = 103
	ErrnoUnverifiedAccount    Errno = 104
	ErrnoInvalidVerification  Errno = 105
	ErrnoInvalidToken         Errno = 110
	ErrnoRequestBlocked       Errno = 125
	ErrnoServerBusy           Errno = 201

	// Local errnos live above the remote namespace.
	ErrnoUserCanceledLogin Errno = 1001
	ErrnoInvalidParameter  Errno = 1008
	ErrnoWorking           Errno = 1015
	ErrnoUnexpected        Errno = 999
)

// Error is an auth-taxonomy error. Param is set for parameter validation
// failures and names the offending query parameter.
type Error struct {
	Errno   Errno
	Message string
	Param   string
}

func (e *Error) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s (errno %d, param %q)", e.Message, e.Errno, e.Param)
	}
	return fmt.Sprintf("%s (errno %d)", e.Message, e.Errno)
}

// Is makes errors.Is match on errno so callers can compare against the
// sentinel constructors below without caring about Message or Param.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Errno == other.Errno
}

func New(errno Errno, message string) *Error {
	return &Error{Errno: errno, Message: message}
}

// NewInvalidParameter reports a malformed or out-of-range query parameter.
// The parameter name travels with the error so the bad-request page can name
// it.
func NewInvalidParameter(param string) *Error {
	return &Error{
		Errno:   ErrnoInvalidParameter,
		Message: "invalid parameter",
		Param:   param,
	}
}

func NewUnexpected(cause error) *Error {
	msg := "unexpected error"
	if cause != nil {
		msg = fmt.Sprintf("unexpected error: %v", cause)
	}
	return &Error{Errno: ErrnoUnexpected, Message: msg}
}

var (
	ErrAccountAlreadyExists = New(ErrnoAccountAlreadyExists, "account already exists")
	ErrUnknownAccount       = New(ErrnoUnknownAccount, "unknown account")
	ErrIncorrectPassword    = New(ErrnoIncorrectPassword, "incorrect password")
	ErrUnverifiedAccount    = New(ErrnoUnverifiedAccount, "unverified account")
	ErrInvalidVerification  = New(ErrnoInvalidVerification, "invalid verification code")
	ErrInvalidToken         = New(ErrnoInvalidToken, "invalid token")

	// ErrUserCanceledLogin is an expected error: it is logged as an event
	// and must never be shown to the user as a failure.
	ErrUserCanceledLogin = New(ErrnoUserCanceledLogin, "user canceled login")
)

// IsInvalidParameter reports whether err is an invalid-parameter error, and
// if so returns the offending parameter name.
func IsInvalidParameter(err error) (string, bool) {
	var ae *Error
	if errors.As(err, &ae) && ae.Errno == ErrnoInvalidParameter {
		return ae.Param, true
	}
	return "", false
}
