package services

import (
	"context"
	"errors"
	"time"

	"github.com/patronlabs/patron-gateway/internal/model"
	"github.com/patronlabs/patron-gateway/internal/repository"
	"github.com/patronlabs/patron-gateway/pkg/apperr"
	"github.com/patronlabs/patron-gateway/pkg/logger"
	"github.com/patronlabs/patron-gateway/pkg/prom"
)

type CampaignRepository interface {
	Create(ctx context.Context, c *model.Campaign) (*model.Campaign, error)
	GetByID(ctx context.Context, id int64) (*model.Campaign, error)
	GetByContract(ctx context.Context, contractID int64, createdBy int64) (*model.Campaign, error)
	ListByCreator(ctx context.Context, createdBy int64) ([]*model.Campaign, error)
	List(ctx context.Context, f model.CampaignFilter) ([]*model.Campaign, int64, error)
	UpdateStats(ctx context.Context, id int64, totalRaised float64, supporterCount int) error
	UpdateContractID(ctx context.Context, id int64, contractID int64) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type MemoRepository interface {
	Create(ctx context.Context, m *model.Memo) (*model.Memo, error)
	GetByTransactionHash(ctx context.Context, hash string) (*model.Memo, error)
	ExistsForSupporter(ctx context.Context, campaignID int64, userAddress string) (bool, error)
	List(ctx context.Context, f model.MemoFilter) ([]*model.Memo, int64, error)
}

// SettlementPublisher hands recorded settlements to the reconciliation
// stream. Publishing is best effort; the periodic sweep covers losses.
type SettlementPublisher interface {
	PublishJSON(ctx context.Context, v interface{}, metadata map[string]string) (string, error)
}

// CampaignService owns campaign lifecycle fields and is the only ingestion
// path for settlement memos.
type CampaignService struct {
	campaignRepo CampaignRepository
	memoRepo     MemoRepository
	users        UserDirectory
	events       SettlementPublisher
}

func NewCampaignService(campaignRepo CampaignRepository, memoRepo MemoRepository, users UserDirectory, events SettlementPublisher) *CampaignService {
	return &CampaignService{
		campaignRepo: campaignRepo,
		memoRepo:     memoRepo,
		users:        users,
		events:       events,
	}
}

func (s *CampaignService) Create(ctx context.Context, p model.CampaignCreateRequest) (*model.Campaign, error) {
	if err := p.Validate(); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	creator, err := s.users.GetByAddress(ctx, p.CreatedBy)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("failed to resolve creator", err)
	}

	c := &model.Campaign{
		Type:            p.Type,
		Name:            p.Name,
		Description:     p.Description,
		Image:           p.Image,
		ContractID:      p.ContractID,
		TransactionHash: p.TransactionHash,
		IsActive:        true,
		CreatedBy:       creator.ID,
	}
	// goal and price are mutually exclusive by type; whichever does not
	// apply is dropped even when the client sent it.
	switch p.Type {
	case model.CampaignTypeDonation:
		c.Goal = p.Goal
	case model.CampaignTypeBusiness, model.CampaignTypeProduct:
		c.Price = p.Price
	}

	created, err := s.campaignRepo.Create(ctx, c)
	if err != nil {
		return nil, apperr.Internal("failed to create campaign", err)
	}
	return created, nil
}

func (s *CampaignService) Get(ctx context.Context, id int64) (*model.Campaign, error) {
	c, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCampaignNotFound) {
			return nil, apperr.NotFound("campaign not found")
		}
		return nil, apperr.Internal("failed to load campaign", err)
	}
	return c, nil
}

func (s *CampaignService) List(ctx context.Context, f model.CampaignFilter) ([]*model.Campaign, model.Pagination, error) {
	page := model.PageRequest{Page: f.Page, PageSize: f.PageSize}
	if err := page.Validate(); err != nil {
		return nil, model.Pagination{}, apperr.Validation(err.Error())
	}

	items, total, err := s.campaignRepo.List(ctx, f)
	if err != nil {
		return nil, model.Pagination{}, apperr.Internal("failed to list campaigns", err)
	}
	return items, model.NewPagination(page, total), nil
}

func (s *CampaignService) ListByCreatorAddress(ctx context.Context, address string, f model.CampaignFilter) ([]*model.Campaign, model.Pagination, error) {
	creator, err := s.users.GetByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, model.Pagination{}, apperr.NotFound("user not found")
		}
		return nil, model.Pagination{}, apperr.Internal("failed to resolve user", err)
	}

	f.CreatedBy = &creator.ID
	return s.List(ctx, f)
}

// ResolveByContract finds the creator's campaign for a ledger id. Exact
// contract-id matches win; campaigns created before their ledger id was
// known fall back to positional correspondence (ledger ids are assigned
// sequentially per creator, 1-based), and out-of-range ids land on the most
// recent campaign. Best-effort legacy bridge, no guarantee under gaps.
func (s *CampaignService) ResolveByContract(ctx context.Context, contractID int64, creatorAddress string) (*model.Campaign, error) {
	creator, err := s.users.GetByAddress(ctx, creatorAddress)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.NotFound("creator not found")
		}
		return nil, apperr.Internal("failed to resolve creator", err)
	}

	c, err := s.campaignRepo.GetByContract(ctx, contractID, creator.ID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, repository.ErrCampaignNotFound) {
		return nil, apperr.Internal("failed to look up campaign", err)
	}

	owned, err := s.campaignRepo.ListByCreator(ctx, creator.ID)
	if err != nil {
		return nil, apperr.Internal("failed to list creator campaigns", err)
	}
	if len(owned) == 0 {
		return nil, apperr.NotFound("campaign not found")
	}

	if contractID >= 1 && int(contractID) <= len(owned) {
		return owned[contractID-1], nil
	}
	return owned[len(owned)-1], nil
}

// ListMemos pages the settlement history of a campaign addressed by store
// id, newest first.
func (s *CampaignService) ListMemos(ctx context.Context, campaignID int64, page model.PageRequest) ([]*model.Memo, model.Pagination, error) {
	if err := page.Validate(); err != nil {
		return nil, model.Pagination{}, apperr.Validation(err.Error())
	}

	c, err := s.Get(ctx, campaignID)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	if c.ContractID == nil {
		// Not settled on chain yet, so no memos can reference it.
		return []*model.Memo{}, model.NewPagination(page, 0), nil
	}

	items, total, err := s.memoRepo.List(ctx, model.MemoFilter{
		CampaignID: c.ContractID,
		Page:       page.Page,
		PageSize:   page.PageSize,
	})
	if err != nil {
		return nil, model.Pagination{}, apperr.Internal("failed to list memos", err)
	}
	return items, model.NewPagination(page, total), nil
}

// IngestMemo records one on-chain settlement exactly once and folds it into
// the campaign statistics. The memo insert and the stat update share one
// transaction; a duplicate transaction hash is rejected before anything is
// written and again by the unique index if two ingests race.
func (s *CampaignService) IngestMemo(ctx context.Context, p model.MemoCreateRequest) (*model.Memo, error) {
	start := time.Now()

	if err := p.Validate(); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	campaign, err := s.ResolveByContract(ctx, p.ContractID, p.CreatorAddress)
	if err != nil {
		return nil, err
	}

	if _, err := s.memoRepo.GetByTransactionHash(ctx, p.TransactionHash); err == nil {
		return nil, apperr.Conflict("duplicate transaction")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal("failed to check transaction hash", err)
	}

	if campaign.ContractID == nil {
		// First settlement against a pre-ledger campaign: backfill the id
		// so future ingests match exactly. Runs after the duplicate check
		// so a rejected memo leaves the campaign untouched.
		if err := s.campaignRepo.UpdateContractID(ctx, campaign.ID, p.ContractID); err != nil {
			return nil, apperr.Internal("failed to backfill contract id", err)
		}
	}

	var created *model.Memo
	err = s.campaignRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		alreadySupporter, err := s.memoRepo.ExistsForSupporter(ctx, p.ContractID, p.UserAddress)
		if err != nil {
			return err
		}

		created, err = s.memoRepo.Create(ctx, &model.Memo{
			CampaignID:      p.ContractID,
			CreatorAddress:  p.CreatorAddress,
			UserAddress:     p.UserAddress,
			Memo:            p.Memo,
			TransactionHash: p.TransactionHash,
			Type:            p.Type,
			Amount:          p.Amount,
		})
		if err != nil {
			return err
		}

		totalRaised := campaign.TotalRaised + created.AmountAPT()
		supporterCount := campaign.SupporterCount
		if !alreadySupporter {
			supporterCount++
		}
		return s.campaignRepo.UpdateStats(ctx, campaign.ID, totalRaised, supporterCount)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateHash) {
			return nil, apperr.Conflict("duplicate transaction")
		}
		return nil, apperr.Internal("failed to record settlement", err)
	}

	prom.AddSettlementIngestDuration(time.Since(start).Seconds(), string(created.Type))
	s.publishSettlement(ctx, created)
	return created, nil
}

func (s *CampaignService) publishSettlement(ctx context.Context, m *model.Memo) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishJSON(ctx, m, map[string]string{"kind": "settlement.recorded"}); err != nil {
		logger.Warn("failed to publish settlement event", "transaction_hash", m.TransactionHash, "error", err)
	}
}
