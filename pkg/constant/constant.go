package constant

import "github.com/mbeoliero/haven/common"

// Roles re-exported for packages that do not import common directly
const (
	RoleOrganization = common.RoleOrganization
	RoleMerchant     = common.RoleMerchant
	RoleHomeless     = common.RoleHomeless
	RoleDonor        = common.RoleDonor
	RoleAdmin        = common.RoleAdmin
)

// Unread counters held on a conversation row
type UnreadCounter string

const (
	CounterNone         UnreadCounter = ""
	CounterOrganization UnreadCounter = "unread_count_organization"
	CounterMerchant     UnreadCounter = "unread_count_merchant"
	CounterHomeless     UnreadCounter = "unread_count_homeless"
)

// Column returns the database column backing the counter.
func (c UnreadCounter) Column() string { return string(c) }

// Counterparty kinds
const (
	CounterpartyOrganization = "organization"
	CounterpartyMerchant     = "merchant"
)

// Placeholder conversation ids are fabricated by clients before the real conversation exists
const PlaceholderConversationPrefix = "mock_"

// Notification payload
const (
	NotificationTypeChatMessage = "chat_message"
	NotificationPreviewRunes    = 50
	NotificationEllipsis        = "..."
)

// Platforms reported when registering push tokens
const (
	PlatformUnknown = "unknown"
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)

// Channel names
const (
	ConversationChannelPrefix = "conv:"
	UserChannelPrefix         = "user:"
)

// ConversationChannel returns the broadcast channel for a conversation.
func ConversationChannel(conversationId string) string {
	return ConversationChannelPrefix + conversationId
}

// UserChannel returns the personal channel of a principal.
func UserChannel(userId string) string {
	return UserChannelPrefix + userId
}

// Redis key patterns (without prefix, use RedisKey() to get full key)
const (
	redisKeyOnline       = "online:%s"       // online:{user_id}
	redisKeyRevokedToken = "token:revoked:%s" // token:revoked:{token_id}
)

// redisKeyPrefix is the global prefix for all Redis keys
var redisKeyPrefix = "haven:"

// InitRedisKeyPrefix initializes the Redis key prefix from config
func InitRedisKeyPrefix(prefix string) {
	if prefix != "" {
		redisKeyPrefix = prefix
	}
}

// GetRedisKeyPrefix returns the current Redis key prefix
func GetRedisKeyPrefix() string {
	return redisKeyPrefix
}

// Redis key getters with prefix
func RedisKeyOnline() string       { return redisKeyPrefix + redisKeyOnline }
func RedisKeyRevokedToken() string { return redisKeyPrefix + redisKeyRevokedToken }
