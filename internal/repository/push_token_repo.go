package repository

import (
	"context"

	"github.com/mbeoliero/haven/internal/entity"
	"github.com/mbeoliero/haven/internal/service"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PushTokenRepo stores device push tokens per account
type PushTokenRepo struct {
	db *gorm.DB
}

var _ service.PushTokenRegistry = (*PushTokenRepo)(nil)

// NewPushTokenRepo creates a new PushTokenRepo
func NewPushTokenRepo(db *gorm.DB) *PushTokenRepo {
	return &PushTokenRepo{db: db}
}

// TokensForAccount returns every token registered by accountId
func (r *PushTokenRepo) TokensForAccount(ctx context.Context, accountId string) ([]string, error) {
	var tokens []string
	err := r.db.WithContext(ctx).
		Model(&entity.PushToken{}).
		Where("account_id = ?", accountId).
		Order("id ASC").
		Pluck("token", &tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// Register adds a token, refreshing the platform when it already exists
func (r *PushTokenRepo) Register(ctx context.Context, accountId, token, platform string) error {
	now := entity.NowUnixMilli()
	pt := &entity.PushToken{
		AccountId: accountId,
		Token:     token,
		Platform:  platform,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "token"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"platform":   platform,
			"updated_at": now,
		}),
	}).Create(pt).Error
}

// Unregister removes a token of accountId
func (r *PushTokenRepo) Unregister(ctx context.Context, accountId, token string) error {
	return r.db.WithContext(ctx).
		Where("account_id = ? AND token = ?", accountId, token).
		Delete(&entity.PushToken{}).Error
}
