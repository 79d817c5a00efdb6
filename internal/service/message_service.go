package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/mbeoliero/haven/common"
	"github.com/mbeoliero/haven/internal/entity"
	"github.com/mbeoliero/haven/internal/metrics"
	"github.com/mbeoliero/haven/pkg/errcode"
	"github.com/mbeoliero/haven/pkg/idgen"
	"github.com/mbeoliero/kit/log"
)

// DefaultMaxMessageRunes bounds message text when no limit is configured
const DefaultMaxMessageRunes = 5000

// MessageService handles message ingestion, history and read state
type MessageService struct {
	store       ChatStore
	dir         Directory
	convs       *ConversationService
	broadcaster Broadcaster
	notifier    NotificationQueue
	maxRunes    int
}

// MessageServiceOption configures a MessageService
type MessageServiceOption func(*MessageService)

// WithBroadcaster sets the live delivery target
func WithBroadcaster(b Broadcaster) MessageServiceOption {
	return func(s *MessageService) { s.broadcaster = b }
}

// WithNotificationQueue sets the queue receiving push notification jobs
func WithNotificationQueue(q NotificationQueue) MessageServiceOption {
	return func(s *MessageService) { s.notifier = q }
}

// WithMaxMessageRunes overrides the message length limit
func WithMaxMessageRunes(n int) MessageServiceOption {
	return func(s *MessageService) {
		if n > 0 {
			s.maxRunes = n
		}
	}
}

// NewMessageService creates a new MessageService
func NewMessageService(store ChatStore, dir Directory, convs *ConversationService, opts ...MessageServiceOption) *MessageService {
	s := &MessageService{
		store:       store,
		dir:         dir,
		convs:       convs,
		broadcaster: NopBroadcaster{},
		maxRunes:    DefaultMaxMessageRunes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendMessage validates, persists and fans out one message
func (s *MessageService) SendMessage(ctx context.Context, principal *common.Principal, conversationId, text string) (*entity.ChatMessage, error) {
	if err := entity.ValidateConversationId(conversationId); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errcode.ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > s.maxRunes {
		return nil, errcode.ErrMessageTooLong
	}

	conv, err := s.convs.LoadAuthorized(ctx, principal, conversationId)
	if err != nil {
		return nil, err
	}

	msgId, err := idgen.NextID()
	if err != nil {
		log.CtxError(ctx, "generate message id failed: %v", err)
		return nil, errcode.ErrInternalServer
	}

	party := PartyFor(principal)
	msg := &entity.ChatMessage{
		Id:             msgId,
		ConversationId: conv.Id,
		SenderId:       principal.Id,
		SenderRole:     string(principal.Role),
		Text:           text,
	}

	updated, err := s.store.AppendMessage(ctx, conv.Id, msg, party.CounterBumpedBySend(conv))
	if err != nil {
		log.CtxError(ctx, "append message failed: conversation_id=%s, sender=%s, error=%v", conv.Id, principal, err)
		return nil, errcode.ErrInternalServer
	}
	if updated == nil {
		return nil, errcode.ErrConvNotFound
	}
	metrics.MessagesSent.WithLabelValues(string(principal.Role)).Inc()

	s.broadcastMessage(ctx, updated, msg)
	s.enqueueNotification(ctx, principal, msg)

	log.CtxInfo(ctx, "message sent: conversation_id=%s, sender=%s, seq=%d", conv.Id, principal, msg.Seq)
	return msg, nil
}

// broadcastMessage delivers msg to the conversation channel and to both
// participants' personal channels
func (s *MessageService) broadcastMessage(ctx context.Context, conv *entity.Conversation, msg *entity.ChatMessage) {
	event := &Event{
		Type: EventNewMessage,
		Payload: &MessageEvent{
			ConversationId: conv.Id,
			Message:        msg,
			UnreadCounts:   conv.Counts(),
		},
	}

	s.broadcaster.BroadcastToConversation(ctx, conv.Id, event, "")
	for _, accountId := range s.participantAccounts(ctx, conv) {
		s.broadcaster.BroadcastToUser(ctx, accountId, event)
	}
}

// participantAccounts resolves the accounts owning both sides of conv
func (s *MessageService) participantAccounts(ctx context.Context, conv *entity.Conversation) []string {
	refs := []ProfileRef{
		{Role: common.RoleHomeless, Id: conv.HomelessId},
		counterpartyProfileRef(conv.Counterparty()),
	}

	accounts := make([]string, 0, len(refs))
	for _, ref := range refs {
		profile, err := lookupProfile(ctx, s.dir, ref)
		if err != nil {
			log.CtxWarn(ctx, "resolve participant account failed: role=%s, id=%s, error=%v", ref.Role, ref.Id, err)
			continue
		}
		if profile == nil || profile.AccountId == "" {
			continue
		}
		if len(accounts) > 0 && accounts[0] == profile.AccountId {
			continue
		}
		accounts = append(accounts, profile.AccountId)
	}
	return accounts
}

func (s *MessageService) enqueueNotification(ctx context.Context, principal *common.Principal, msg *entity.ChatMessage) {
	if s.notifier == nil {
		return
	}
	job := &NewMessageJob{
		ConversationId: msg.ConversationId,
		MessageId:      msg.Id,
		SenderId:       principal.Id,
		SenderRole:     string(principal.Role),
		SenderName:     principal.DisplayName,
		Text:           msg.Text,
	}
	// The job outlives the request, so it must not inherit its cancellation.
	if err := s.notifier.Enqueue(context.WithoutCancel(ctx), job); err != nil {
		log.CtxWarn(ctx, "enqueue notification failed: message_id=%s, error=%v", msg.Id, err)
	}
}

// GetMessages returns the full history of a conversation, oldest first
func (s *MessageService) GetMessages(ctx context.Context, principal *common.Principal, conversationId string) ([]*entity.ChatMessage, error) {
	conv, err := s.convs.LoadAuthorized(ctx, principal, conversationId)
	if err != nil {
		return nil, err
	}

	msgs, err := s.store.ListMessages(ctx, conv.Id)
	if err != nil {
		log.CtxError(ctx, "list messages failed: conversation_id=%s, error=%v", conv.Id, err)
		return nil, errcode.ErrInternalServer
	}
	return msgs, nil
}

// MarkAsRead flags inbound messages read, resets the principal's own counter
// and broadcasts a read receipt to the conversation channel
func (s *MessageService) MarkAsRead(ctx context.Context, principal *common.Principal, conversationId string) (*ReadReceiptEvent, error) {
	conv, err := s.convs.LoadAuthorized(ctx, principal, conversationId)
	if err != nil {
		return nil, err
	}

	now := entity.NowUnixMilli()
	updated, flagged, err := s.store.MarkRead(ctx, conv.Id, principal.Id, PartyFor(principal).OwnUnreadCounter(), now)
	if err != nil {
		log.CtxError(ctx, "mark read failed: conversation_id=%s, reader=%s, error=%v", conv.Id, principal, err)
		return nil, errcode.ErrInternalServer
	}
	if updated == nil {
		return nil, errcode.ErrConvNotFound
	}

	receipt := &ReadReceiptEvent{
		ConversationId:          updated.Id,
		ReaderId:                principal.Id,
		ReaderRole:              string(principal.Role),
		ReadAt:                  now,
		UnreadCountOrganization: updated.UnreadCountOrganization,
		UnreadCountMerchant:     updated.UnreadCountMerchant,
		UnreadCountHomeless:     updated.UnreadCountHomeless,
	}
	s.broadcaster.BroadcastToConversation(ctx, updated.Id, &Event{Type: EventReadReceipt, Payload: receipt}, "")

	log.CtxDebug(ctx, "conversation marked read: conversation_id=%s, reader=%s, flagged=%d", updated.Id, principal, flagged)
	return receipt, nil
}
