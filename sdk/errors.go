package sdk

import (
	"errors"
	"fmt"
)

// Error represents an API error
type Error struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("code: %d, msg: %s", e.Code, e.Msg)
}

// NewError creates a new error
func NewError(code int, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// IsSuccess checks if the error code indicates success
func (e *Error) IsSuccess() bool {
	return e.Code == 0
}

// CodeOf returns the API code carried by err, or -1 when err is not an API error
func CodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return -1
}

// Common error codes
const (
	// Success
	CodeSuccess = 0

	// Common errors (1xxx)
	CodeInvalidParam    = 1001
	CodeInternalServer  = 1002
	CodeUnauthorized    = 1003
	CodeAccessDenied    = 1004
	CodeNotFound        = 1005
	CodeTooManyRequests = 1006

	// Token errors (2xxx)
	CodeTokenInvalid = 2001
	CodeTokenExpired = 2002
	CodeTokenMissing = 2003
	CodeTokenRevoked = 2004

	// Chat errors (4xxx)
	CodeEmptyMessage        = 4001
	CodeMessageTooLong      = 4002
	CodeConvNotFound        = 4003
	CodeCounterpartyMissing = 4004
	CodeHomelessNotFound    = 4005
	CodeInvalidId           = 4006
	CodeChatNotInitialized  = 4007

	// WebSocket errors (5xxx)
	CodeConnOverLimit   = 5001
	CodeConnClosed      = 5002
	CodeInvalidProtocol = 5003
)
