package fixtures

import (
	"fmt"
	"strings"
	"time"

	"github.com/patronlabs/patron-gateway/internal/model"
)

// Address builds a well-formed 66-character Aptos address from a short seed.
func Address(seed string) string {
	return "0x" + strings.Repeat(seed, 64/len(seed))
}

var (
	TestUserAlice = model.User{
		ID:       1,
		Address:  Address("a"),
		Nickname: "alice",
	}

	TestUserBob = model.User{
		ID:       2,
		Address:  Address("b"),
		Nickname: "bob",
	}

	TestUserCreator = model.User{
		ID:       3,
		Address:  Address("c"),
		Nickname: "creator",
	}
)

func NewTestUserCreateRequest(address string) model.UserCreateRequest {
	return model.UserCreateRequest{
		Address: address,
	}
}

func NewTestCampaignCreateRequest(creatorAddress string, campaignType model.CampaignType) model.CampaignCreateRequest {
	p := model.CampaignCreateRequest{
		Type:        campaignType,
		Name:        "Save the reef",
		Description: "Coral restoration off the coast",
		CreatedBy:   creatorAddress,
	}
	switch campaignType {
	case model.CampaignTypeDonation:
		goal := 500.0
		p.Goal = &goal
	default:
		price := 25.0
		p.Price = &price
	}
	return p
}

func NewTestMemoCreateRequest(contractID int64, creatorAddress, userAddress, txHash string, amount int64) model.MemoCreateRequest {
	return model.MemoCreateRequest{
		ContractID:      contractID,
		CreatorAddress:  creatorAddress,
		UserAddress:     userAddress,
		Memo:            "keep it up",
		TransactionHash: txHash,
		Type:            model.MemoTypeDonation,
		Amount:          amount,
	}
}

func NewTestMessageSendRequest(sender, receiver, body string) model.MessageSendRequest {
	return model.MessageSendRequest{
		SenderAddress:   sender,
		ReceiverAddress: receiver,
		Message:         body,
	}
}

// TxHash returns a unique transaction hash per call site index.
func TxHash(n int) string {
	return fmt.Sprintf("0x%064d", n)
}

var (
	ValidAddresses = []string{
		Address("a"),
		Address("b"),
		Address("c"),
		Address("1"),
	}

	InvalidAddresses = []string{
		"",
		"0x1",
		"not-an-address",
		"0x",
	}

	ValidMessageBodies = []string{
		"Hello",
		"Thanks for supporting the campaign!",
		strings.Repeat("x", model.MaxMessageLength),
	}

	InvalidMessageBodies = []string{
		"",
		strings.Repeat("x", model.MaxMessageLength+1),
	}
)

func CampaignFilterByCreator(userID int64) model.CampaignFilter {
	return model.CampaignFilter{
		CreatedBy: &userID,
		Page:      1,
		PageSize:  model.DefaultPageSize,
	}
}

func CampaignFilterByType(t model.CampaignType) model.CampaignFilter {
	return model.CampaignFilter{
		Type:     &t,
		Page:     1,
		PageSize: model.DefaultPageSize,
	}
}

func MemoFilterByContract(contractID int64) model.MemoFilter {
	return model.MemoFilter{
		CampaignID: &contractID,
		Page:       1,
		PageSize:   model.DefaultPageSize,
	}
}

func SettledCampaign(id, contractID, createdBy int64) *model.Campaign {
	goal := 500.0
	return &model.Campaign{
		ID:          id,
		Type:        model.CampaignTypeDonation,
		Name:        "Save the reef",
		Description: "Coral restoration off the coast",
		Goal:        &goal,
		ContractID:  &contractID,
		IsActive:    true,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now(),
	}
}
