package services

import (
	"context"
	"errors"
	"time"

	gateway "github.com/patronlabs/patron-gateway/internal/gateways"
	"github.com/patronlabs/patron-gateway/internal/model"
	"github.com/patronlabs/patron-gateway/pkg/apperr"
	"github.com/patronlabs/patron-gateway/pkg/logger"
	"github.com/google/uuid"
)

const processedMarkerTTL = 0 // no expiry; a settled swap never becomes unprocessed

type LedgerClient interface {
	GetTransactionByHash(ctx context.Context, hash string) (*gateway.AptosTransaction, error)
}

type RelayClient interface {
	Distribute(ctx context.Context, p *gateway.DistributeRequest) (*gateway.DistributeResponse, error)
}

// ProcessedMarker is the replay guard for swap settlement. SetNX semantics:
// first caller wins the hash, everyone after gets false.
type ProcessedMarker interface {
	SetNX(key string, value []byte, ttl time.Duration) (bool, error)
	Del(key string) error
}

// SwapService verifies a settled APT transfer on chain and hands it to the
// external relay for ERC-20 distribution. The relay is a black box; this
// side only guards against replays and sender mismatch.
type SwapService struct {
	ledger LedgerClient
	relay  RelayClient
	marker ProcessedMarker
}

func NewSwapService(ledger LedgerClient, relay RelayClient, marker ProcessedMarker) *SwapService {
	return &SwapService{
		ledger: ledger,
		relay:  relay,
		marker: marker,
	}
}

func (s *SwapService) Process(ctx context.Context, p model.SwapProcessRequest) (*model.SwapResult, error) {
	if err := p.Validate(); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	markerKey := "swap:processed:" + p.AptosTxHash
	acquired, err := s.marker.SetNX(markerKey, []byte(p.UserAddress), processedMarkerTTL)
	if err != nil {
		return nil, apperr.Internal("failed to check replay marker", err)
	}
	if !acquired {
		return nil, apperr.Conflict("transaction already processed")
	}

	// The marker only sticks for swaps that reach the relay; anything that
	// fails verification may legitimately be retried.
	release := func() {
		if err := s.marker.Del(markerKey); err != nil {
			logger.Warn("failed to release replay marker", "key", markerKey, "error", err)
		}
	}

	tx, err := s.ledger.GetTransactionByHash(ctx, p.AptosTxHash)
	if err != nil {
		release()
		if errors.Is(err, gateway.ErrTransactionNotFound) {
			return nil, apperr.NotFound("transaction not found")
		}
		return nil, apperr.Internal("failed to verify transaction", err)
	}

	if !tx.Success {
		release()
		return nil, apperr.Validation("transaction did not succeed on chain")
	}
	if tx.Sender != p.UserAddress {
		release()
		return nil, apperr.Forbidden("transaction sender does not match")
	}
	if tx.Amount <= 0 {
		release()
		return nil, apperr.Validation("transaction transferred no value")
	}

	swapID := uuid.New().String()
	dist, err := s.relay.Distribute(ctx, &gateway.DistributeRequest{
		SwapID:      swapID,
		AptosTxHash: p.AptosTxHash,
		UserAddress: p.UserAddress,
		Amount:      tx.Amount,
	})
	if err != nil {
		logger.Error("relay distribution failed", "swap_id", swapID, "aptos_tx_hash", p.AptosTxHash, "error", err)
		return nil, apperr.Internal("relay distribution failed", err)
	}

	return &model.SwapResult{
		ID:          swapID,
		AptosTxHash: p.AptosTxHash,
		RelayTxHash: dist.TxHash,
		UserAddress: p.UserAddress,
		Amount:      tx.Amount,
		Status:      model.SwapStatusCompleted,
		ProcessedAt: time.Now().UTC(),
	}, nil
}
