package reconciler

import (
	"context"
	"fmt"

	"github.com/patronlabs/patron-gateway/internal/model"
	"github.com/patronlabs/patron-gateway/pkg/logger"
)

type CampaignStore interface {
	GetByContract(ctx context.Context, contractID int64, createdBy int64) (*model.Campaign, error)
	ListSettled(ctx context.Context) ([]*model.Campaign, error)
	UpdateStats(ctx context.Context, id int64, totalRaised float64, supporterCount int) error
}

type MemoStore interface {
	ListByCampaign(ctx context.Context, campaignID int64) ([]*model.Memo, error)
}

type UserStore interface {
	GetByAddress(ctx context.Context, address string) (*model.User, error)
}

// StatsRebuilder recomputes a campaign's running totals from its memos. The
// memo log is the source of truth; whatever the stats columns say is
// overwritten.
type StatsRebuilder struct {
	campaigns CampaignStore
	memos     MemoStore
}

func NewStatsRebuilder(campaigns CampaignStore, memos MemoStore) *StatsRebuilder {
	return &StatsRebuilder{
		campaigns: campaigns,
		memos:     memos,
	}
}

func (r *StatsRebuilder) Rebuild(ctx context.Context, campaign *model.Campaign) error {
	if campaign.ContractID == nil {
		return nil
	}

	memos, err := r.memos.ListByCampaign(ctx, *campaign.ContractID)
	if err != nil {
		return fmt.Errorf("list memos for campaign %d: %w", campaign.ID, err)
	}

	var totalRaised float64
	supporters := make(map[string]struct{})
	for _, m := range memos {
		totalRaised += m.AmountAPT()
		supporters[m.UserAddress] = struct{}{}
	}

	if totalRaised == campaign.TotalRaised && len(supporters) == campaign.SupporterCount {
		return nil
	}

	logger.Info("repairing campaign stats",
		"campaign_id", campaign.ID,
		"total_raised", totalRaised,
		"supporter_count", len(supporters),
		"previous_total", campaign.TotalRaised,
		"previous_count", campaign.SupporterCount)

	return r.campaigns.UpdateStats(ctx, campaign.ID, totalRaised, len(supporters))
}
