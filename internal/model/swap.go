package model

import (
	"errors"
	"time"
)

type SwapStatus string

const (
	SwapStatusPending   SwapStatus = "pending"
	SwapStatusCompleted SwapStatus = "completed"
	SwapStatusFailed    SwapStatus = "failed"
)

// SwapProcessRequest asks the bridge to verify a settled APT transfer and
// hand it to the external relay for ERC-20 distribution.
type SwapProcessRequest struct {
	AptosTxHash string `json:"aptos_tx_hash"`
	UserAddress string `json:"user_address"`
}

func (p SwapProcessRequest) Validate() error {
	if p.AptosTxHash == "" {
		return errors.New("aptos_tx_hash is required")
	}
	if p.UserAddress == "" {
		return errors.New("user_address is required")
	}
	return nil
}

type SwapResult struct {
	ID          string     `json:"id"`
	AptosTxHash string     `json:"aptos_tx_hash"`
	RelayTxHash string     `json:"relay_tx_hash,omitempty"`
	UserAddress string     `json:"user_address"`
	Amount      int64      `json:"amount"` // octas
	Status      SwapStatus `json:"status"`
	ProcessedAt time.Time  `json:"processed_at"`
}
