package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/patronlabs/patron-gateway/internal/model"
	"github.com/patronlabs/patron-gateway/pkg/pg"
	"gorm.io/gorm"
)

type MemoRepository struct {
	*pg.DB
}

func NewMemoRepository(db *pg.DB) *MemoRepository {
	return &MemoRepository{
		db,
	}
}

func (r *MemoRepository) Create(ctx context.Context, m *model.Memo) (*model.Memo, error) {
	entity := toMemoEntity(m)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateHash
		}
		return nil, err
	}

	return toMemoModel(entity), nil
}

func (r *MemoRepository) GetByTransactionHash(ctx context.Context, hash string) (*model.Memo, error) {
	var entity MemoEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("transaction_hash = ?", hash).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return toMemoModel(&entity), nil
}

// ExistsForSupporter reports whether the address already settled against
// this ledger campaign. The aggregator calls it before the insert to decide
// first-time-supporter status.
func (r *MemoRepository) ExistsForSupporter(ctx context.Context, campaignID int64, userAddress string) (bool, error) {
	var count int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&MemoEntity{}).
		Where("campaign_id = ? AND user_address = ?", campaignID, userAddress).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *MemoRepository) List(ctx context.Context, f model.MemoFilter) ([]*model.Memo, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&MemoEntity{})

	if f.CampaignID != nil {
		q = q.Where("campaign_id = ?", *f.CampaignID)
	}

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

	var entities []*MemoEntity
	err := q.Order("created_at DESC, id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&entities).
		Error
	if err != nil {
		return nil, 0, err
	}

	return toMemoModels(entities), total, nil
}

// ListByCampaign returns every memo of a ledger campaign, oldest first. The
// reconciliation sweep replays these to recompute campaign statistics.
func (r *MemoRepository) ListByCampaign(ctx context.Context, campaignID int64) ([]*model.Memo, error) {
	var entities []*MemoEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at ASC, id ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}

	return toMemoModels(entities), nil
}

// isUniqueViolation matches the unique-index error of both postgres and the
// sqlite driver used in tests.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
