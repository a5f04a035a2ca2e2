package repository

import (
	"time"

	"github.com/patronlabs/patron-gateway/internal/model"
)

type MemoEntity struct {
	ID              int64     `db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	CampaignID      int64     `db:"campaign_id"      gorm:"column:campaign_id;not null;index"`
	CreatorAddress  string    `db:"creator_address"  gorm:"column:creator_address;not null"`
	UserAddress     string    `db:"user_address"     gorm:"column:user_address;not null;index"`
	Memo            string    `db:"memo"             gorm:"column:memo;not null"`
	TransactionHash string    `db:"transaction_hash" gorm:"column:transaction_hash;not null;uniqueIndex"`
	Type            string    `db:"type"             gorm:"column:type;not null"`
	Amount          int64     `db:"amount"           gorm:"column:amount;not null"`
	CreatedAt       time.Time `db:"created_at"       gorm:"column:created_at;autoCreateTime"`
}

func (MemoEntity) TableName() string {
	return "memos"
}

func toMemoEntity(m *model.Memo) *MemoEntity {
	if m == nil {
		return nil
	}
	return &MemoEntity{
		ID:              m.ID,
		CampaignID:      m.CampaignID,
		CreatorAddress:  m.CreatorAddress,
		UserAddress:     m.UserAddress,
		Memo:            m.Memo,
		TransactionHash: m.TransactionHash,
		Type:            string(m.Type),
		Amount:          m.Amount,
		CreatedAt:       m.CreatedAt,
	}
}

func toMemoModel(e *MemoEntity) *model.Memo {
	if e == nil {
		return nil
	}
	return &model.Memo{
		ID:              e.ID,
		CampaignID:      e.CampaignID,
		CreatorAddress:  e.CreatorAddress,
		UserAddress:     e.UserAddress,
		Memo:            e.Memo,
		TransactionHash: e.TransactionHash,
		Type:            model.MemoType(e.Type),
		Amount:          e.Amount,
		CreatedAt:       e.CreatedAt,
	}
}

func toMemoModels(entities []*MemoEntity) []*model.Memo {
	if entities == nil {
		return nil
	}
	models := make([]*model.Memo, len(entities))
	for i, e := range entities {
		models[i] = toMemoModel(e)
	}
	return models
}
