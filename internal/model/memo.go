package model

import (
	"errors"
	"time"
	"unicode/utf8"
)

// OctasPerAPT converts settlement amounts from the smallest ledger unit
// (octas) to APT for aggregation and display.
const OctasPerAPT = 100_000_000

// MemoType is the settlement flavor recorded on chain.
type MemoType string

const (
	MemoTypeDonation MemoType = "donation"
	MemoTypePurchase MemoType = "purchase"
)

func (t MemoType) Valid() bool {
	return t == MemoTypeDonation || t == MemoTypePurchase
}

// Memo is the off-chain mirror of one on-chain settlement. TransactionHash
// is globally unique and acts as the ingestion idempotency key.
type Memo struct {
	ID int64 `json:"id"`
	// CampaignID is the ledger campaign id (Campaign.ContractID), not the
	// store id.
	CampaignID      int64     `json:"campaign_id"`
	CreatorAddress  string    `json:"creator_address"`
	UserAddress     string    `json:"user_address"`
	Memo            string    `json:"memo"`
	TransactionHash string    `json:"transaction_hash"`
	Type            MemoType  `json:"type"`
	Amount          int64     `json:"amount"` // octas
	CreatedAt       time.Time `json:"created_at"`
}

func (Memo) TableName() string { return "memos" }

// AmountAPT is the display-unit value added to a campaign's running total.
func (m *Memo) AmountAPT() float64 {
	return float64(m.Amount) / OctasPerAPT
}

type MemoCreateRequest struct {
	ContractID      int64    `json:"contract_id"`
	CreatorAddress  string   `json:"creator_address"`
	Memo            string   `json:"memo"`
	TransactionHash string   `json:"transaction_hash"`
	Type            MemoType `json:"type"`
	UserAddress     string   `json:"user_address"`
	Amount          int64    `json:"amount"`
}

func (p MemoCreateRequest) Validate() error {
	if p.ContractID == 0 || p.CreatorAddress == "" || p.Memo == "" ||
		p.TransactionHash == "" || p.Type == "" || p.UserAddress == "" || p.Amount == 0 {
		return errors.New("missing required fields")
	}
	if !p.Type.Valid() {
		return errors.New("invalid type")
	}
	if p.Amount < 0 {
		return errors.New("amount must be positive")
	}
	if utf8.RuneCountInString(p.Memo) > 256 {
		return errors.New("memo exceeds maximum length")
	}
	return nil
}

// MemoFilter controls memo listings for a campaign.
type MemoFilter struct {
	CampaignID *int64 // ledger id
	Page       int
	PageSize   int
}
