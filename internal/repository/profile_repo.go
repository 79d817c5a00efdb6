package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/mbeoliero/haven/common"
	"github.com/mbeoliero/haven/internal/entity"
	"github.com/mbeoliero/haven/internal/service"
	"gorm.io/gorm"
)

// ProfileRepo reads party profiles and accounts owned by the identity service
type ProfileRepo struct {
	db *gorm.DB
}

var _ service.Directory = (*ProfileRepo)(nil)

// NewProfileRepo creates a new ProfileRepo
func NewProfileRepo(db *gorm.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// first loads one row into dst, mapping a missing row to found=false
func (r *ProfileRepo) first(ctx context.Context, dst interface{}, query string, args ...interface{}) (bool, error) {
	err := r.db.WithContext(ctx).Where(query, args...).First(dst).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func organizationProfile(o *entity.Organization) *entity.Profile {
	return &entity.Profile{Id: o.Id, Role: string(common.RoleOrganization), AccountId: o.AccountId, Name: o.Name, IsDeleted: o.IsDeleted}
}

func merchantProfile(m *entity.Merchant) *entity.Profile {
	return &entity.Profile{Id: m.Id, Role: string(common.RoleMerchant), AccountId: m.AccountId, Name: m.BusinessName, IsDeleted: m.IsDeleted}
}

func homelessProfile(h *entity.Homeless) *entity.Profile {
	return &entity.Profile{Id: h.Id, Role: string(common.RoleHomeless), AccountId: h.AccountId, Name: h.Name, IsDeleted: h.IsDeleted}
}

// GetOrganization gets an organization profile by id
func (r *ProfileRepo) GetOrganization(ctx context.Context, id string) (*entity.Profile, error) {
	var o entity.Organization
	found, err := r.first(ctx, &o, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return organizationProfile(&o), nil
}

// GetMerchant gets a merchant profile by id
func (r *ProfileRepo) GetMerchant(ctx context.Context, id string) (*entity.Profile, error) {
	var m entity.Merchant
	found, err := r.first(ctx, &m, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return merchantProfile(&m), nil
}

// GetHomeless gets a homeless profile by id
func (r *ProfileRepo) GetHomeless(ctx context.Context, id string) (*entity.Profile, error) {
	var h entity.Homeless
	found, err := r.first(ctx, &h, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return homelessProfile(&h), nil
}

// ProfileForAccount gets the live profile of the given role owned by accountId
func (r *ProfileRepo) ProfileForAccount(ctx context.Context, role common.RoleType, accountId string) (*entity.Profile, error) {
	const query = "account_id = ? AND is_deleted = ?"

	switch role {
	case common.RoleOrganization:
		var o entity.Organization
		found, err := r.first(ctx, &o, query, accountId, false)
		if err != nil || !found {
			return nil, err
		}
		return organizationProfile(&o), nil
	case common.RoleMerchant:
		var m entity.Merchant
		found, err := r.first(ctx, &m, query, accountId, false)
		if err != nil || !found {
			return nil, err
		}
		return merchantProfile(&m), nil
	case common.RoleHomeless:
		var h entity.Homeless
		found, err := r.first(ctx, &h, query, accountId, false)
		if err != nil || !found {
			return nil, err
		}
		return homelessProfile(&h), nil
	default:
		return nil, fmt.Errorf("role %s has no profile", role)
	}
}

// GetAccount gets an account by id
func (r *ProfileRepo) GetAccount(ctx context.Context, accountId string) (*entity.Account, error) {
	var a entity.Account
	found, err := r.first(ctx, &a, "id = ?", accountId)
	if err != nil || !found {
		return nil, err
	}
	return &a, nil
}
