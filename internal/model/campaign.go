package model

import (
	"errors"
	"time"
	"unicode/utf8"
)

// CampaignType is the product shape of a campaign. It never changes after
// creation.
type CampaignType string

const (
	CampaignTypeDonation CampaignType = "donation"
	CampaignTypeBusiness CampaignType = "business"
	CampaignTypeProduct  CampaignType = "product"
)

func (t CampaignType) Valid() bool {
	switch t {
	case CampaignTypeDonation, CampaignTypeBusiness, CampaignTypeProduct:
		return true
	}
	return false
}

type Campaign struct {
	ID          int64        `json:"id"`
	Type        CampaignType `json:"type"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	// Goal is set for donation campaigns, Price for business/product ones.
	// The two are mutually exclusive by type.
	Goal  *float64 `json:"goal,omitempty"`
	Price *float64 `json:"price,omitempty"`
	Image string   `json:"image,omitempty"`
	// ContractID is the ledger-assigned campaign id, backfilled for
	// campaigns created before the on-chain id was known.
	ContractID      *int64  `json:"contract_id,omitempty"`
	TransactionHash string  `json:"transaction_hash,omitempty"`
	IsActive        bool    `json:"is_active"`
	TotalRaised     float64 `json:"total_raised"`
	SupporterCount  int     `json:"supporter_count"`
	// CreatedBy references the owning user and is immutable.
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Campaign) TableName() string { return "campaigns" }

type CampaignCreateRequest struct {
	Type            CampaignType `json:"type"`
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	Goal            *float64     `json:"goal,omitempty"`
	Price           *float64     `json:"price,omitempty"`
	Image           string       `json:"image,omitempty"`
	ContractID      *int64       `json:"contract_id,omitempty"`
	TransactionHash string       `json:"transaction_hash,omitempty"`
	// CreatedBy is the creator's wallet address, resolved to a user by the
	// service.
	CreatedBy string `json:"created_by"`
}

func (p CampaignCreateRequest) Validate() error {
	if p.Type == "" || p.Name == "" || p.Description == "" || p.CreatedBy == "" {
		return errors.New("missing required fields")
	}
	if !p.Type.Valid() {
		return errors.New("invalid campaign type")
	}
	if utf8.RuneCountInString(p.Name) > 100 {
		return errors.New("name exceeds maximum length")
	}
	if utf8.RuneCountInString(p.Description) > 256 {
		return errors.New("description exceeds maximum length")
	}
	return nil
}

// CampaignFilter controls List queries.
type CampaignFilter struct {
	Type      *CampaignType
	IsActive  *bool
	CreatedBy *int64 // owning user id
	Page      int
	PageSize  int
}
