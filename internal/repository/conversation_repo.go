package repository

import (
	"context"
	"errors"

	"github.com/mbeoliero/haven/internal/entity"
	"github.com/mbeoliero/haven/internal/service"
	"github.com/mbeoliero/haven/pkg/constant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// deletedPairKeySuffix is appended to the pair key of a soft-deleted conversation
// so that a fresh conversation for the same pair can be created later
const deletedPairKeySuffix = "#deleted#"

// ConversationRepo is the repository for conversation operations
type ConversationRepo struct {
	db *gorm.DB
}

// NewConversationRepo creates a new ConversationRepo
func NewConversationRepo(db *gorm.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

func firstOrNil(err error, conv *entity.Conversation) (*entity.Conversation, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return conv, nil
}

// GetById gets a conversation by id, deleted or not
func (r *ConversationRepo) GetById(ctx context.Context, id string) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error
	return firstOrNil(err, &conv)
}

// GetByIdForUpdate reads a conversation holding its row lock until tx ends
func (r *ConversationRepo) GetByIdForUpdate(ctx context.Context, tx *gorm.DB, id string) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := lockedQuery(ctx, tx, id).First(&conv).Error
	return firstOrNil(err, &conv)
}

func lockedQuery(ctx context.Context, tx *gorm.DB, id string) *gorm.DB {
	return tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id)
}

// GetActiveByPairKey gets the live conversation of a homeless/counterparty pair
func (r *ConversationRepo) GetActiveByPairKey(ctx context.Context, pairKey string) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := r.db.WithContext(ctx).
		Where("pair_key = ? AND is_deleted = ?", pairKey, false).
		First(&conv).Error
	return firstOrNil(err, &conv)
}

// CreateIfAbsent inserts conv unless its pair key is taken, then returns the winning row
func (r *ConversationRepo) CreateIfAbsent(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, error) {
	if err := r.insertIgnoreQuery(ctx, conv).Error; err != nil {
		return nil, err
	}
	stored, err := r.GetActiveByPairKey(ctx, conv.PairKey)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, errors.New("conversation vanished after insert: pair_key=" + conv.PairKey)
	}
	return stored, nil
}

// insertIgnoreQuery inserts conv, leaving an existing row with the same pair key untouched
func (r *ConversationRepo) insertIgnoreQuery(ctx context.Context, conv *entity.Conversation) *gorm.DB {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(conv)
}

func (r *ConversationRepo) listQuery(ctx context.Context, filter service.ConversationFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&entity.Conversation{}).Where("is_deleted = ?", false)
	if filter.HomelessId != "" {
		q = q.Where("homeless_id = ?", filter.HomelessId)
	}
	if filter.OrganizationId != "" {
		q = q.Where("organization_id = ?", filter.OrganizationId)
	}
	if filter.MerchantId != "" {
		q = q.Where("merchant_id = ?", filter.MerchantId)
	}
	return q.Order("updated_at DESC")
}

// List gets live conversations matching filter, most recently updated first
func (r *ConversationRepo) List(ctx context.Context, filter service.ConversationFilter) ([]*entity.Conversation, error) {
	var convs []*entity.Conversation
	if err := r.listQuery(ctx, filter).Find(&convs).Error; err != nil {
		return nil, err
	}
	return convs, nil
}

// SoftDelete flags a conversation deleted and releases its pair key
func (r *ConversationRepo) SoftDelete(ctx context.Context, id string, at int64) error {
	return r.db.WithContext(ctx).
		Model(&entity.Conversation{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_at": at,
			"updated_at": at,
			"pair_key":   gorm.Expr("CONCAT(pair_key, ?, id)", deletedPairKeySuffix),
		}).Error
}

// SaveLatest writes the message high-water mark, preview and counters of conv
func (r *ConversationRepo) SaveLatest(ctx context.Context, tx *gorm.DB, conv *entity.Conversation) error {
	return saveLatestQuery(ctx, tx, conv).Error
}

func saveLatestQuery(ctx context.Context, tx *gorm.DB, conv *entity.Conversation) *gorm.DB {
	return tx.WithContext(ctx).
		Model(&entity.Conversation{}).
		Where("id = ?", conv.Id).
		Updates(map[string]interface{}{
			"message_seq":               conv.MessageSeq,
			"last_message_id":           conv.LastMessageId,
			"last_message_text":         conv.LastMessageText,
			"last_message_at":           conv.LastMessageAt,
			"unread_count_organization": conv.UnreadCountOrganization,
			"unread_count_merchant":     conv.UnreadCountMerchant,
			"unread_count_homeless":     conv.UnreadCountHomeless,
			"updated_at":                conv.UpdatedAt,
		})
}

// ResetCounter zeroes one unread counter. Reading is not activity, so
// updated_at and with it the list order stay as they are.
func (r *ConversationRepo) ResetCounter(ctx context.Context, tx *gorm.DB, id string, counter constant.UnreadCounter) error {
	if counter == constant.CounterNone {
		return nil
	}
	return resetCounterQuery(ctx, tx, id, counter).Error
}

func resetCounterQuery(ctx context.Context, tx *gorm.DB, id string, counter constant.UnreadCounter) *gorm.DB {
	return tx.WithContext(ctx).
		Model(&entity.Conversation{}).
		Where("id = ?", id).
		UpdateColumn(counter.Column(), 0)
}
