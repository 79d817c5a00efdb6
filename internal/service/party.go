package service

import (
	"github.com/mbeoliero/haven/common"
	"github.com/mbeoliero/haven/internal/entity"
	"github.com/mbeoliero/haven/pkg/constant"
)

// ProfileRef points at a party profile
type ProfileRef struct {
	Role common.RoleType
	Id   string
}

// Party captures every role-specific rule of the conversation subsystem, so
// callers ask one capability instead of branching on the role string.
type Party interface {
	Role() common.RoleType
	// CanAccess decides whether the party may read, write or subscribe to conv
	CanAccess(conv *entity.Conversation) bool
	// OwnUnreadCounter is the counter reset when this party marks a conversation read
	OwnUnreadCounter() constant.UnreadCounter
	// CounterBumpedBySend is the counter incremented when this party sends into conv
	CounterBumpedBySend(conv *entity.Conversation) constant.UnreadCounter
	// NotificationRecipient is the profile whose owning account is notified of a send
	NotificationRecipient(conv *entity.Conversation) ProfileRef
	// ListFilter restricts conversation listings; ok=false means no listing rights
	ListFilter() (filter ConversationFilter, ok bool)
}

// PartyFor builds the Party of an authenticated principal
func PartyFor(p *common.Principal) Party {
	switch p.Role {
	case common.RoleOrganization:
		return organizationParty{profileId: p.ProfileId}
	case common.RoleMerchant:
		return merchantParty{profileId: p.ProfileId}
	case common.RoleHomeless:
		return homelessParty{profileId: p.ProfileId}
	case common.RoleAdmin:
		return adminParty{}
	default:
		return noAccessParty{role: p.Role}
	}
}

// towardsHomeless is shared by every non-homeless sender
func towardsHomeless(conv *entity.Conversation) ProfileRef {
	return ProfileRef{Role: common.RoleHomeless, Id: conv.HomelessId}
}

type organizationParty struct{ profileId string }

func (organizationParty) Role() common.RoleType { return common.RoleOrganization }

func (p organizationParty) CanAccess(conv *entity.Conversation) bool {
	return p.profileId != "" && conv.HasOrganization() && *conv.OrganizationId == p.profileId
}

func (organizationParty) OwnUnreadCounter() constant.UnreadCounter {
	return constant.CounterOrganization
}

func (organizationParty) CounterBumpedBySend(*entity.Conversation) constant.UnreadCounter {
	return constant.CounterHomeless
}

func (organizationParty) NotificationRecipient(conv *entity.Conversation) ProfileRef {
	return towardsHomeless(conv)
}

func (p organizationParty) ListFilter() (ConversationFilter, bool) {
	return ConversationFilter{OrganizationId: p.profileId}, p.profileId != ""
}

type merchantParty struct{ profileId string }

func (merchantParty) Role() common.RoleType { return common.RoleMerchant }

func (p merchantParty) CanAccess(conv *entity.Conversation) bool {
	return p.profileId != "" && conv.HasMerchant() && *conv.MerchantId == p.profileId
}

func (merchantParty) OwnUnreadCounter() constant.UnreadCounter {
	return constant.CounterMerchant
}

func (merchantParty) CounterBumpedBySend(*entity.Conversation) constant.UnreadCounter {
	return constant.CounterHomeless
}

func (merchantParty) NotificationRecipient(conv *entity.Conversation) ProfileRef {
	return towardsHomeless(conv)
}

func (p merchantParty) ListFilter() (ConversationFilter, bool) {
	return ConversationFilter{MerchantId: p.profileId}, p.profileId != ""
}

type homelessParty struct{ profileId string }

func (homelessParty) Role() common.RoleType { return common.RoleHomeless }

func (p homelessParty) CanAccess(conv *entity.Conversation) bool {
	return p.profileId != "" && conv.HomelessId == p.profileId
}

func (homelessParty) OwnUnreadCounter() constant.UnreadCounter {
	return constant.CounterHomeless
}

func (homelessParty) CounterBumpedBySend(conv *entity.Conversation) constant.UnreadCounter {
	if conv.HasOrganization() {
		return constant.CounterOrganization
	}
	return constant.CounterMerchant
}

func (homelessParty) NotificationRecipient(conv *entity.Conversation) ProfileRef {
	return counterpartyProfileRef(conv.Counterparty())
}

func (p homelessParty) ListFilter() (ConversationFilter, bool) {
	return ConversationFilter{HomelessId: p.profileId}, p.profileId != ""
}

// adminParty moderates: full access, sends do not count as unread.
type adminParty struct{}

func (adminParty) Role() common.RoleType { return common.RoleAdmin }

func (adminParty) CanAccess(*entity.Conversation) bool { return true }

// Roles without a counter of their own fall back to the homeless counter.
func (adminParty) OwnUnreadCounter() constant.UnreadCounter {
	return constant.CounterHomeless
}

func (adminParty) CounterBumpedBySend(*entity.Conversation) constant.UnreadCounter {
	return constant.CounterNone
}

func (adminParty) NotificationRecipient(conv *entity.Conversation) ProfileRef {
	return towardsHomeless(conv)
}

func (adminParty) ListFilter() (ConversationFilter, bool) {
	return ConversationFilter{}, true
}

// noAccessParty covers donors and any unknown role.
type noAccessParty struct{ role common.RoleType }

func (p noAccessParty) Role() common.RoleType { return p.role }

func (noAccessParty) CanAccess(*entity.Conversation) bool { return false }

func (noAccessParty) OwnUnreadCounter() constant.UnreadCounter {
	return constant.CounterHomeless
}

func (noAccessParty) CounterBumpedBySend(*entity.Conversation) constant.UnreadCounter {
	return constant.CounterNone
}

func (noAccessParty) NotificationRecipient(conv *entity.Conversation) ProfileRef {
	return towardsHomeless(conv)
}

func (noAccessParty) ListFilter() (ConversationFilter, bool) {
	return ConversationFilter{}, false
}
