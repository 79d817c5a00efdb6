package errcode

import (
	"errors"
	"fmt"
)

// Error represents a business error
type Error struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("errcode: %d, msg: %s", e.Code, e.Msg)
}

// Is matches errors carrying the same code, so wrapped variants still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new error with code and message
func New(code int, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Wrap wraps an error with additional context
func (e *Error) Wrap(err error) *Error {
	if err == nil {
		return e
	}
	return &Error{
		Code: e.Code,
		Msg:  fmt.Sprintf("%s: %v", e.Msg, err),
	}
}

// WithMsg returns a copy of e with a more specific message
func (e *Error) WithMsg(msg string) *Error {
	return &Error{Code: e.Code, Msg: msg}
}

// As extracts a business error from err
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Common error codes
var (
	// Success
	ErrSuccess = New(0, "success")

	// Common errors (1xxx)
	ErrInvalidParam    = New(1001, "invalid parameter")
	ErrInternalServer  = New(1002, "internal server error")
	ErrUnauthorized    = New(1003, "unauthorized")
	ErrAccessDenied    = New(1004, "access denied")
	ErrNotFound        = New(1005, "not found")
	ErrTooManyRequests = New(1006, "too many requests")

	// Auth errors (2xxx)
	ErrTokenInvalid = New(2001, "token invalid")
	ErrTokenExpired = New(2002, "token expired")
	ErrTokenMissing = New(2003, "token missing")
	ErrTokenRevoked = New(2004, "token revoked")

	// Chat errors (4xxx)
	ErrEmptyMessage        = New(4001, "message text is empty")
	ErrMessageTooLong      = New(4002, "message text too long")
	ErrConvNotFound        = New(4003, "conversation not found")
	ErrCounterpartyMissing = New(4004, "Organization or Merchant not found")
	ErrHomelessNotFound    = New(4005, "homeless profile not found")
	ErrInvalidId           = New(4006, "invalid id")
	ErrChatNotInitialized  = New(4007, "conversation not initialized")

	// WebSocket errors (5xxx)
	ErrConnOverLimit   = New(5001, "connection over max limit")
	ErrConnClosed      = New(5002, "connection closed")
	ErrInvalidProtocol = New(5003, "invalid protocol")
)

// IsValidation reports whether err is a user-correctable validation failure
func IsValidation(err error) bool {
	e, ok := As(err)
	if !ok {
		return false
	}
	switch e.Code {
	case ErrInvalidParam.Code, ErrEmptyMessage.Code, ErrMessageTooLong.Code, ErrInvalidId.Code:
		return true
	}
	return false
}

// IsNotFound reports whether err reports a missing or soft-deleted record
func IsNotFound(err error) bool {
	e, ok := As(err)
	if !ok {
		return false
	}
	switch e.Code {
	case ErrNotFound.Code, ErrConvNotFound.Code, ErrCounterpartyMissing.Code, ErrHomelessNotFound.Code:
		return true
	}
	return false
}
