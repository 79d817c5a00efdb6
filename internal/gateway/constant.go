package gateway

import "time"

// Request identifiers sent by clients
const (
	WSJoinConversation  = 1101 // Subscribe to conv:<id>
	WSLeaveConversation = 1102 // Unsubscribe from conv:<id>
	WSTypingStart       = 1103
	WSTypingStop        = 1104
	WSMarkRead          = 1105
	WSSendMessage       = 1106
	WSHeartbeat         = 1107 // Refresh online presence
)

// Push identifiers sent by the server
const (
	WSPushMessage     = 2001
	WSPushTyping      = 2003
	WSPushReadReceipt = 2004
	WSPushError       = 2005
)

// Connection defaults, used when configuration leaves a value unset
const (
	DefaultWriteWait        = 10 * time.Second
	DefaultPongWait         = 30 * time.Second
	DefaultMaxMessageSize   = 51200
	DefaultWriteChannelSize = 256
)

// QueryToken carries the bearer token for clients that cannot set headers on the upgrade request
const QueryToken = "token"
