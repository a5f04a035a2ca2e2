package reconciler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/patronlabs/patron-gateway/internal/model"
	"github.com/patronlabs/patron-gateway/internal/queue"
	"github.com/patronlabs/patron-gateway/internal/repository"
	"github.com/patronlabs/patron-gateway/pkg/logger"
	"github.com/patronlabs/patron-gateway/pkg/prom"
)

// SettlementProcessor consumes settlement.recorded events and rebuilds the
// affected campaign's statistics from its memo log. Recomputation is
// idempotent, so reprocessing a delivered event is harmless; the redis
// markers exist to keep retry storms off the database.
type SettlementProcessor struct {
	users       UserStore
	campaigns   CampaignStore
	rebuilder   *StatsRebuilder
	idempotency *IdempotencyService
}

func NewSettlementProcessor(users UserStore, campaigns CampaignStore, rebuilder *StatsRebuilder, idempotency *IdempotencyService) *SettlementProcessor {
	return &SettlementProcessor{
		users:       users,
		campaigns:   campaigns,
		rebuilder:   rebuilder,
		idempotency: idempotency,
	}
}

func (p *SettlementProcessor) GetType() string {
	return "settlement"
}

func (p *SettlementProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	var memo model.Memo
	if err := json.Unmarshal(queueMessage.Data, &memo); err != nil {
		logger.Error("failed to unmarshal settlement event", "error", err)
		return err // malformed payload, let retries exhaust into the DLQ
	}
	if memo.TransactionHash == "" {
		logger.Warn("settlement event without transaction hash, dropping", "event_id", queueMessage.ID)
		return nil
	}

	procCtx, err := p.idempotency.AcquireProcessingLock(ctx, memo.TransactionHash)
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			logger.Error("giving up on settlement event", "transaction_hash", memo.TransactionHash)
			prom.IncReconcileRun("abandoned")
			return nil // ack, the periodic sweep will cover it
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			return errors.New("lock held by another consumer")
		}
		return err
	}
	defer p.idempotency.ReleaseLock(ctx, procCtx)

	if err := p.reconcile(ctx, &memo); err != nil {
		logger.Error("settlement reconciliation failed",
			"transaction_hash", memo.TransactionHash,
			"campaign_id", memo.CampaignID,
			"error", err)
		prom.IncReconcileRun("failure")
		if markErr := p.idempotency.MarkFailure(ctx, procCtx, err); markErr != nil {
			logger.Error("failed to record retry", "transaction_hash", memo.TransactionHash, "error", markErr)
		}
		return err
	}

	prom.IncReconcileRun("success")
	if err := p.idempotency.MarkSuccess(ctx, procCtx); err != nil {
		logger.Error("failed to mark event processed", "transaction_hash", memo.TransactionHash, "error", err)
	}
	return nil
}

func (p *SettlementProcessor) reconcile(ctx context.Context, memo *model.Memo) error {
	creator, err := p.users.GetByAddress(ctx, memo.CreatorAddress)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// The memo references a creator this store never saw. Nothing to
			// repair; retrying will not help.
			logger.Warn("settlement event for unknown creator", "creator_address", memo.CreatorAddress)
			return nil
		}
		return err
	}

	campaign, err := p.campaigns.GetByContract(ctx, memo.CampaignID, creator.ID)
	if err != nil {
		if errors.Is(err, repository.ErrCampaignNotFound) {
			logger.Warn("settlement event for unknown campaign",
				"contract_id", memo.CampaignID, "creator_id", creator.ID)
			return nil
		}
		return err
	}

	return p.rebuilder.Rebuild(ctx, campaign)
}
