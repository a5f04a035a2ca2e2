package repository

import (
	"context"
	"errors"

	"github.com/patronlabs/patron-gateway/internal/model"
	"github.com/patronlabs/patron-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrCampaignNotFound = errors.New("campaign not found")
)

type CampaignRepository struct {
	*pg.DB
}

func NewCampaignRepository(db *pg.DB) *CampaignRepository {
	return &CampaignRepository{
		db,
	}
}

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) (*model.Campaign, error) {
	entity := toCampaignEntity(c)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toCampaignModel(entity), nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	var entity CampaignEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}

	return toCampaignModel(&entity), nil
}

// GetByContract finds the campaign carrying this ledger id for the given
// owner. Campaigns created before their on-chain id was known have a NULL
// contract_id and never match here; the service layer falls back to
// positional reconciliation.
func (r *CampaignRepository) GetByContract(ctx context.Context, contractID int64, createdBy int64) (*model.Campaign, error) {
	var entity CampaignEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("contract_id = ? AND created_by = ?", contractID, createdBy).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}

	return toCampaignModel(&entity), nil
}

// ListByCreator returns all of a user's campaigns ordered oldest first, the
// order the positional contract-id fallback depends on.
func (r *CampaignRepository) ListByCreator(ctx context.Context, createdBy int64) ([]*model.Campaign, error) {
	var entities []*CampaignEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("created_by = ?", createdBy).
		Order("created_at ASC, id ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}

	return toCampaignModels(entities), nil
}

func (r *CampaignRepository) List(ctx context.Context, f model.CampaignFilter) ([]*model.Campaign, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&CampaignEntity{})

	if f.Type != nil {
		q = q.Where("type = ?", string(*f.Type))
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	if f.CreatedBy != nil {
		q = q.Where("created_by = ?", *f.CreatedBy)
	}

	// Count before pagination
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	pageSize := f.PageSize
	if pageSize <= 0 || pageSize > model.MaxPageSize {
		pageSize = model.DefaultPageSize
	}
	page := f.Page
	if page < 1 {
		page = 1
	}

	var entities []*CampaignEntity
	err := q.Order("created_at DESC, id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&entities).
		Error
	if err != nil {
		return nil, 0, err
	}

	return toCampaignModels(entities), total, nil
}

// ListSettled returns every campaign that has a ledger id, the population
// the reconciliation sweep recomputes statistics for.
func (r *CampaignRepository) ListSettled(ctx context.Context) ([]*model.Campaign, error) {
	var entities []*CampaignEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("contract_id IS NOT NULL").
		Order("id ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}

	return toCampaignModels(entities), nil
}

// UpdateStats persists the aggregation fields mutated by memo ingestion.
// Nothing else on the row is touched.
func (r *CampaignRepository) UpdateStats(ctx context.Context, id int64, totalRaised float64, supporterCount int) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&CampaignEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_raised":    totalRaised,
			"supporter_count": supporterCount,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCampaignNotFound
	}
	return nil
}

// UpdateContractID backfills the ledger id on a campaign that was created
// before the on-chain id was assigned.
func (r *CampaignRepository) UpdateContractID(ctx context.Context, id int64, contractID int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&CampaignEntity{}).
		Where("id = ?", id).
		Update("contract_id", contractID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCampaignNotFound
	}
	return nil
}
