package service

import (
	"context"

	"github.com/mbeoliero/haven/common"
	"github.com/mbeoliero/haven/internal/entity"
	"github.com/mbeoliero/haven/pkg/constant"
	"github.com/mbeoliero/haven/pkg/jwt"
)

// ChatStore persists conversations and their messages.
// Lookups return (nil, nil) when the record does not exist.
type ChatStore interface {
	GetConversation(ctx context.Context, id string) (*entity.Conversation, error)
	FindActiveConversation(ctx context.Context, ref entity.CounterpartyRef, homelessId string) (*entity.Conversation, error)
	// CreateConversation inserts conv unless a live conversation for the same pair
	// already exists; either way the persisted row is returned.
	CreateConversation(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, error)
	ListConversations(ctx context.Context, filter ConversationFilter) ([]*entity.Conversation, error)
	SoftDeleteConversation(ctx context.Context, id string, at int64) error

	// AppendMessage assigns seq and createdAt to msg, appends it and bumps the
	// counter in one atomic step, returning the updated conversation.
	AppendMessage(ctx context.Context, conversationId string, msg *entity.ChatMessage, bump constant.UnreadCounter) (*entity.Conversation, error)
	ListMessages(ctx context.Context, conversationId string) ([]*entity.ChatMessage, error)
	// MarkRead flags every unread message not sent by readerId and resets one counter
	// atomically. It returns the updated conversation and the number of flagged messages.
	MarkRead(ctx context.Context, conversationId, readerId string, reset constant.UnreadCounter, at int64) (*entity.Conversation, int64, error)
}

// ConversationFilter narrows a conversation listing. An empty filter lists everything.
type ConversationFilter struct {
	HomelessId     string
	OrganizationId string
	MerchantId     string
}

// Directory resolves party profiles and the accounts that own them.
// Lookups return (nil, nil) when the record does not exist.
type Directory interface {
	GetOrganization(ctx context.Context, id string) (*entity.Profile, error)
	GetMerchant(ctx context.Context, id string) (*entity.Profile, error)
	GetHomeless(ctx context.Context, id string) (*entity.Profile, error)
	ProfileForAccount(ctx context.Context, role common.RoleType, accountId string) (*entity.Profile, error)
	GetAccount(ctx context.Context, accountId string) (*entity.Account, error)
}

// PushTokenRegistry stores device tokens per account
type PushTokenRegistry interface {
	TokensForAccount(ctx context.Context, accountId string) ([]string, error)
	Register(ctx context.Context, accountId, token, platform string) error
	Unregister(ctx context.Context, accountId, token string) error
}

// Broadcaster delivers events to live connections. Delivery is best-effort;
// having no subscriber is not an error.
type Broadcaster interface {
	BroadcastToConversation(ctx context.Context, conversationId string, event *Event, excludeUserId string)
	BroadcastToUser(ctx context.Context, userId string, event *Event)
	ConversationHasSubscriber(conversationId string) bool
}

// NotificationQueue accepts notification jobs without blocking the caller
type NotificationQueue interface {
	Enqueue(ctx context.Context, job *NewMessageJob) error
}

// Presence reports whether a principal holds a live connection on any instance
type Presence interface {
	IsOnline(ctx context.Context, userId string) bool
}

// PushSender delivers one notification to one device token
type PushSender interface {
	Send(ctx context.Context, n *PushNotification) error
}

// TokenRevoker tracks revoked bearer tokens
type TokenRevoker interface {
	IsRevoked(ctx context.Context, claims *jwt.Claims) (bool, error)
	Revoke(ctx context.Context, claims *jwt.Claims) error
}

// NopBroadcaster drops every event
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastToConversation(context.Context, string, *Event, string) {}
func (NopBroadcaster) BroadcastToUser(context.Context, string, *Event)                 {}
func (NopBroadcaster) ConversationHasSubscriber(string) bool                           { return false }

// lookupProfile fetches the profile ref points at
func lookupProfile(ctx context.Context, dir Directory, ref ProfileRef) (*entity.Profile, error) {
	switch ref.Role {
	case common.RoleOrganization:
		return dir.GetOrganization(ctx, ref.Id)
	case common.RoleMerchant:
		return dir.GetMerchant(ctx, ref.Id)
	case common.RoleHomeless:
		return dir.GetHomeless(ctx, ref.Id)
	}
	return nil, nil
}

// counterpartyProfileRef converts a conversation counterparty into a ProfileRef
func counterpartyProfileRef(ref entity.CounterpartyRef) ProfileRef {
	if ref.Kind == constant.CounterpartyMerchant {
		return ProfileRef{Role: common.RoleMerchant, Id: ref.Id}
	}
	return ProfileRef{Role: common.RoleOrganization, Id: ref.Id}
}
