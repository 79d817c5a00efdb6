package sdk

// Roles carried in the token role claim
const (
	RoleOrganization = "organization"
	RoleMerchant     = "merchant"
	RoleHomeless     = "homeless"
	RoleDonor        = "donor"
	RoleAdmin        = "admin"
)

// Push token platforms
const (
	PlatformUnknown = "unknown"
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)

// WebSocket request identifiers
const (
	WSJoinConversation  = 1101
	WSLeaveConversation = 1102
	WSTypingStart       = 1103
	WSTypingStop        = 1104
	WSMarkRead          = 1105
	WSSendMessage       = 1106
	WSHeartbeat         = 1107
)

// WebSocket server push identifiers
const (
	WSPushMessage     = 2001
	WSPushTyping      = 2003
	WSPushReadReceipt = 2004
	WSPushError       = 2005
)
