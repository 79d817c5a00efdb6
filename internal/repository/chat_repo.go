package repository

import (
	"context"

	"github.com/mbeoliero/haven/internal/entity"
	"github.com/mbeoliero/haven/internal/service"
	"github.com/mbeoliero/haven/pkg/constant"
	"gorm.io/gorm"
)

// ChatRepo combines conversations and messages into the service.ChatStore
type ChatRepo struct {
	repos *Repositories
	conv  *ConversationRepo
	msg   *MessageRepo
}

var _ service.ChatStore = (*ChatRepo)(nil)

// NewChatRepo creates a new ChatRepo
func NewChatRepo(repos *Repositories) *ChatRepo {
	return &ChatRepo{
		repos: repos,
		conv:  repos.Conversation,
		msg:   repos.Message,
	}
}

func (r *ChatRepo) GetConversation(ctx context.Context, id string) (*entity.Conversation, error) {
	return r.conv.GetById(ctx, id)
}

func (r *ChatRepo) FindActiveConversation(ctx context.Context, ref entity.CounterpartyRef, homelessId string) (*entity.Conversation, error) {
	return r.conv.GetActiveByPairKey(ctx, ref.PairKey(homelessId))
}

func (r *ChatRepo) CreateConversation(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, error) {
	return r.conv.CreateIfAbsent(ctx, conv)
}

func (r *ChatRepo) ListConversations(ctx context.Context, filter service.ConversationFilter) ([]*entity.Conversation, error) {
	return r.conv.List(ctx, filter)
}

func (r *ChatRepo) SoftDeleteConversation(ctx context.Context, id string, at int64) error {
	return r.conv.SoftDelete(ctx, id, at)
}

// AppendMessage locks the conversation row, assigns seq and createdAt, inserts
// the message and writes the new preview and counters in one transaction.
// It returns (nil, nil) when the conversation is missing or deleted.
func (r *ChatRepo) AppendMessage(ctx context.Context, conversationId string, msg *entity.ChatMessage, bump constant.UnreadCounter) (*entity.Conversation, error) {
	var updated *entity.Conversation

	err := r.repos.Transaction(ctx, func(tx *gorm.DB) error {
		conv, err := r.conv.GetByIdForUpdate(ctx, tx, conversationId)
		if err != nil {
			return err
		}
		if conv == nil || conv.IsDeleted {
			return nil
		}

		// createdAt never goes backwards within a conversation
		now := entity.NowUnixMilli()
		if now < conv.LastMessageAt {
			now = conv.LastMessageAt
		}
		msg.Seq = conv.MessageSeq + 1
		msg.CreatedAt = now

		if err := r.msg.Create(ctx, tx, msg); err != nil {
			return err
		}

		conv.ApplyMessage(msg, bump)
		if err := r.conv.SaveLatest(ctx, tx, conv); err != nil {
			return err
		}
		updated = conv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *ChatRepo) ListMessages(ctx context.Context, conversationId string) ([]*entity.ChatMessage, error) {
	return r.msg.ListByConversation(ctx, conversationId)
}

// MarkRead flags inbound messages and resets one counter under the conversation row lock
func (r *ChatRepo) MarkRead(ctx context.Context, conversationId, readerId string, reset constant.UnreadCounter, at int64) (*entity.Conversation, int64, error) {
	var (
		updated *entity.Conversation
		flagged int64
	)

	err := r.repos.Transaction(ctx, func(tx *gorm.DB) error {
		conv, err := r.conv.GetByIdForUpdate(ctx, tx, conversationId)
		if err != nil {
			return err
		}
		if conv == nil || conv.IsDeleted {
			return nil
		}

		flagged, err = r.msg.MarkRead(ctx, tx, conversationId, readerId, at)
		if err != nil {
			return err
		}
		if err := r.conv.ResetCounter(ctx, tx, conversationId, reset); err != nil {
			return err
		}
		conv.ResetCounter(reset)
		updated = conv
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return updated, flagged, nil
}
