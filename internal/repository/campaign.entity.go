package repository

import (
	"time"

	"github.com/patronlabs/patron-gateway/internal/model"
)

type CampaignEntity struct {
	ID              int64     `db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	Type            string    `db:"type"             gorm:"column:type;not null"`
	Name            string    `db:"name"             gorm:"column:name;not null"`
	Description     string    `db:"description"      gorm:"column:description;not null"`
	Goal            *float64  `db:"goal"             gorm:"column:goal"`
	Price           *float64  `db:"price"            gorm:"column:price"`
	Image           string    `db:"image"            gorm:"column:image;not null;default:''"`
	ContractID      *int64    `db:"contract_id"      gorm:"column:contract_id;index"`
	TransactionHash string    `db:"transaction_hash" gorm:"column:transaction_hash;not null;default:''"`
	// No gorm default here: gorm skips zero-valued fields that carry one,
	// which would turn an inserted false into the column default true. The
	// migration's DB default handles rows created outside the repository.
	IsActive        bool      `db:"is_active"        gorm:"column:is_active;not null"`
	TotalRaised     float64   `db:"total_raised"     gorm:"column:total_raised;not null;default:0"`
	SupporterCount  int       `db:"supporter_count"  gorm:"column:supporter_count;not null;default:0"`
	CreatedBy       int64     `db:"created_by"       gorm:"column:created_by;not null;index"`
	Creator         *UserEntity `gorm:"foreignKey:CreatedBy;references:ID"`
	CreatedAt       time.Time `db:"created_at"       gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `db:"updated_at"       gorm:"column:updated_at;autoUpdateTime"`
}

func (CampaignEntity) TableName() string {
	return "campaigns"
}

func toCampaignEntity(m *model.Campaign) *CampaignEntity {
	if m == nil {
		return nil
	}
	return &CampaignEntity{
		ID:              m.ID,
		Type:            string(m.Type),
		Name:            m.Name,
		Description:     m.Description,
		Goal:            m.Goal,
		Price:           m.Price,
		Image:           m.Image,
		ContractID:      m.ContractID,
		TransactionHash: m.TransactionHash,
		IsActive:        m.IsActive,
		TotalRaised:     m.TotalRaised,
		SupporterCount:  m.SupporterCount,
		CreatedBy:       m.CreatedBy,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toCampaignModel(e *CampaignEntity) *model.Campaign {
	if e == nil {
		return nil
	}
	return &model.Campaign{
		ID:              e.ID,
		Type:            model.CampaignType(e.Type),
		Name:            e.Name,
		Description:     e.Description,
		Goal:            e.Goal,
		Price:           e.Price,
		Image:           e.Image,
		ContractID:      e.ContractID,
		TransactionHash: e.TransactionHash,
		IsActive:        e.IsActive,
		TotalRaised:     e.TotalRaised,
		SupporterCount:  e.SupporterCount,
		CreatedBy:       e.CreatedBy,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func toCampaignModels(entities []*CampaignEntity) []*model.Campaign {
	if entities == nil {
		return nil
	}
	models := make([]*model.Campaign, len(entities))
	for i, e := range entities {
		models[i] = toCampaignModel(e)
	}
	return models
}
