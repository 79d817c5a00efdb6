package gateway

import "errors"

// Gateway errors
var (
	ErrConnClosed       = errors.New("connection closed")
	ErrWriteChannelFull = errors.New("write channel full")
	ErrPanic            = errors.New("panic error")
	ErrUnknownEvent     = errors.New("unknown event type")
)
