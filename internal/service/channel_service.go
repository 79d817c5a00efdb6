package service

import (
	"context"

	"github.com/mbeoliero/haven/common"
	"github.com/mbeoliero/haven/internal/entity"
)

// ChannelService authorizes channel subscriptions and relays typing indicators
type ChannelService struct {
	convs       *ConversationService
	broadcaster Broadcaster
}

// NewChannelService creates a new ChannelService
func NewChannelService(convs *ConversationService, broadcaster Broadcaster) *ChannelService {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &ChannelService{
		convs:       convs,
		broadcaster: broadcaster,
	}
}

// AuthorizeJoin runs the participation check before a connection joins the conversation channel
func (s *ChannelService) AuthorizeJoin(ctx context.Context, principal *common.Principal, conversationId string) (*entity.Conversation, error) {
	return s.convs.LoadAuthorized(ctx, principal, conversationId)
}

// Typing broadcasts a typing indicator to every other subscriber of the conversation
func (s *ChannelService) Typing(ctx context.Context, principal *common.Principal, conversationId string, isTyping bool) (*TypingEvent, error) {
	conv, err := s.convs.LoadAuthorized(ctx, principal, conversationId)
	if err != nil {
		return nil, err
	}

	event := &TypingEvent{
		ConversationId: conv.Id,
		SenderId:       principal.Id,
		SenderRole:     string(principal.Role),
		DisplayName:    principal.DisplayName,
		IsTyping:       isTyping,
		Timestamp:      entity.NowUnixMilli(),
	}
	s.broadcaster.BroadcastToConversation(ctx, conv.Id, &Event{Type: EventTyping, Payload: event}, principal.Id)
	return event, nil
}
