package repository

import (
	"context"

	"github.com/mbeoliero/haven/internal/entity"
	"gorm.io/gorm"
)

// MessageRepo is the repository for message operations
type MessageRepo struct {
	db *gorm.DB
}

// NewMessageRepo creates a new MessageRepo
func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create creates a new message
func (r *MessageRepo) Create(ctx context.Context, tx *gorm.DB, msg *entity.ChatMessage) error {
	return tx.WithContext(ctx).Create(msg).Error
}

// ListByConversation returns the whole history of a conversation, oldest first
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationId string) ([]*entity.ChatMessage, error) {
	var messages []*entity.ChatMessage
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationId).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *MessageRepo) markReadQuery(ctx context.Context, tx *gorm.DB, conversationId, readerId string, at int64) *gorm.DB {
	return tx.WithContext(ctx).
		Model(&entity.ChatMessage{}).
		Where("conversation_id = ? AND is_read = ? AND sender_id <> ?", conversationId, false, readerId).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": at,
		})
}

// MarkRead flags every unread message not sent by readerId and returns how many changed
func (r *MessageRepo) MarkRead(ctx context.Context, tx *gorm.DB, conversationId, readerId string, at int64) (int64, error) {
	res := r.markReadQuery(ctx, tx, conversationId, readerId, at)
	return res.RowsAffected, res.Error
}
