package entity

import (
	"strings"
	"time"

	"github.com/mbeoliero/haven/pkg/constant"
	"github.com/mbeoliero/haven/pkg/errcode"
	"github.com/mbeoliero/haven/pkg/idgen"
)

// NowUnixMilli returns current unix timestamp in milliseconds
func NowUnixMilli() int64 {
	return time.Now().UnixMilli()
}

// IsPlaceholderConversationId reports whether id was fabricated client-side
// for an optimistic conversation that does not exist yet
func IsPlaceholderConversationId(id string) bool {
	return strings.HasPrefix(id, constant.PlaceholderConversationPrefix)
}

// ValidateConversationId checks the placeholder case first, then the id format
func ValidateConversationId(id string) error {
	if IsPlaceholderConversationId(id) {
		return errcode.ErrChatNotInitialized
	}
	if !idgen.IsValidOpaqueId(id) {
		return errcode.ErrInvalidId.WithMsg("invalid conversation id")
	}
	return nil
}

// ValidateProfileId checks the format of a profile id
func ValidateProfileId(id, what string) error {
	if !idgen.IsValidOpaqueId(id) {
		return errcode.ErrInvalidId.WithMsg("invalid " + what + " id")
	}
	return nil
}
