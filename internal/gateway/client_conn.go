package gateway

import "time"

// ClientConn is the transport under a Client. WriteMessage must not block:
// implementations buffer and report ErrWriteChannelFull when the peer is too slow.
type ClientConn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// ConnOptions tunes a connection's deadlines and buffers
type ConnOptions struct {
	WriteWait        time.Duration
	PongWait         time.Duration
	PingPeriod       time.Duration
	MaxMessageSize   int64
	WriteChannelSize int
}

func (o ConnOptions) withDefaults() ConnOptions {
	if o.WriteWait <= 0 {
		o.WriteWait = DefaultWriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = DefaultPongWait
	}
	// Pings must go out before the peer's read deadline expires
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = (o.PongWait * 9) / 10
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = DefaultMaxMessageSize
	}
	if o.WriteChannelSize <= 0 {
		o.WriteChannelSize = DefaultWriteChannelSize
	}
	return o
}
