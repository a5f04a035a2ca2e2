package repository

import (
	"context"
	"errors"

	"github.com/patronlabs/patron-gateway/internal/model"
	"github.com/patronlabs/patron-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUserExists    = errors.New("user already exists")
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateHash = errors.New("transaction hash already recorded")
)

type UserRepository struct {
	*pg.DB
}

func NewUserRepository(db *pg.DB) *UserRepository {
	return &UserRepository{
		db,
	}
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) (*model.User, error) {
	var existing UserEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("address = ?", u.Address).
		First(&existing).
		Error
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	entity := toUserEntity(u)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toUserModel(entity), nil
}

func (r *UserRepository) GetByAddress(ctx context.Context, address string) (*model.User, error) {
	var entity UserEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("address = ?", address).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return toUserModel(&entity), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var entity UserEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return toUserModel(&entity), nil
}

// Update applies non-nil profile fields to the user addressed by
// p.Address and returns the updated row.
func (r *UserRepository) Update(ctx context.Context, p model.UserUpdateRequest) (*model.User, error) {
	updates := map[string]interface{}{}
	if p.Nickname != nil {
		updates["nickname"] = *p.Nickname
	}
	if p.Avatar != nil {
		updates["avatar"] = *p.Avatar
	}
	if p.Bio != nil {
		updates["bio"] = *p.Bio
	}

	if len(updates) > 0 {
		result := r.Write(ctx).WithContext(ctx).
			Model(&UserEntity{}).
			Where("address = ?", p.Address).
			Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, ErrUserNotFound
		}
	}

	var entity UserEntity
	err := r.Write(ctx).WithContext(ctx).
		Where("address = ?", p.Address).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return toUserModel(&entity), nil
}
