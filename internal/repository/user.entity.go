package repository

import (
	"time"

	"github.com/patronlabs/patron-gateway/internal/model"
)

type UserEntity struct {
	ID        int64     `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Address   string    `db:"address"    gorm:"column:address;not null;uniqueIndex"`
	Nickname  string    `db:"nickname"   gorm:"column:nickname;not null;default:''"`
	Avatar    string    `db:"avatar"     gorm:"column:avatar;not null;default:''"`
	Bio       string    `db:"bio"        gorm:"column:bio;not null;default:''"`
	Followers int       `db:"followers"  gorm:"column:followers;not null;default:0"`
	Following int       `db:"following"  gorm:"column:following;not null;default:0"`
	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `db:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (UserEntity) TableName() string {
	return "users"
}

func toUserEntity(m *model.User) *UserEntity {
	if m == nil {
		return nil
	}
	return &UserEntity{
		ID:        m.ID,
		Address:   m.Address,
		Nickname:  m.Nickname,
		Avatar:    m.Avatar,
		Bio:       m.Bio,
		Followers: m.Followers,
		Following: m.Following,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toUserModel(e *UserEntity) *model.User {
	if e == nil {
		return nil
	}
	return &model.User{
		ID:        e.ID,
		Address:   e.Address,
		Nickname:  e.Nickname,
		Avatar:    e.Avatar,
		Bio:       e.Bio,
		Followers: e.Followers,
		Following: e.Following,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}
