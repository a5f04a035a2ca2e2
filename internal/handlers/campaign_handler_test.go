package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/patronlabs/patron-gateway/internal/model"
	"github.com/patronlabs/patron-gateway/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCampaignService struct {
	mock.Mock
}

func (m *MockCampaignService) Create(ctx context.Context, p model.CampaignCreateRequest) (*model.Campaign, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func (m *MockCampaignService) Get(ctx context.Context, id int64) (*model.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func (m *MockCampaignService) List(ctx context.Context, f model.CampaignFilter) ([]*model.Campaign, model.Pagination, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(model.Pagination), args.Error(2)
	}
	return args.Get(0).([]*model.Campaign), args.Get(1).(model.Pagination), args.Error(2)
}

func (m *MockCampaignService) ListByCreatorAddress(ctx context.Context, address string, f model.CampaignFilter) ([]*model.Campaign, model.Pagination, error) {
	args := m.Called(ctx, address, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(model.Pagination), args.Error(2)
	}
	return args.Get(0).([]*model.Campaign), args.Get(1).(model.Pagination), args.Error(2)
}

func (m *MockCampaignService) ResolveByContract(ctx context.Context, contractID int64, creatorAddress string) (*model.Campaign, error) {
	args := m.Called(ctx, contractID, creatorAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func (m *MockCampaignService) ListMemos(ctx context.Context, campaignID int64, page model.PageRequest) ([]*model.Memo, model.Pagination, error) {
	args := m.Called(ctx, campaignID, page)
	if args.Get(0) == nil {
		return nil, args.Get(1).(model.Pagination), args.Error(2)
	}
	return args.Get(0).([]*model.Memo), args.Get(1).(model.Pagination), args.Error(2)
}

func (m *MockCampaignService) IngestMemo(ctx context.Context, p model.MemoCreateRequest) (*model.Memo, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Memo), args.Error(1)
}

func TestCampaignHandler_CreateCampaign(t *testing.T) {
	creator := handlerAddress("c")

	t.Run("successful creation", func(t *testing.T) {
		svc := new(MockCampaignService)
		handler := NewCampaignHandler(svc)

		goal := 100.0
		reqBody := model.CampaignCreateRequest{
			Type:        model.CampaignTypeDonation,
			Name:        "Lab",
			Description: "A lab",
			Goal:        &goal,
			CreatedBy:   creator,
		}
		bodyBytes, _ := json.Marshal(reqBody)

		svc.On("Create", mock.Anything, mock.MatchedBy(func(p model.CampaignCreateRequest) bool {
			return p.Name == "Lab" && p.Type == model.CampaignTypeDonation
		})).Return(&model.Campaign{ID: 7, Name: "Lab", IsActive: true}, nil)

		ctx := setupTestContext("POST", "/api/v1/create-campaign", bodyBytes)
		handler.CreateCampaign(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())

		var response model.Campaign
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, int64(7), response.ID)

		svc.AssertExpectations(t)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		handler := NewCampaignHandler(new(MockCampaignService))

		ctx := setupTestContext("POST", "/api/v1/create-campaign", []byte("{"))
		handler.CreateCampaign(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})
}

func TestCampaignHandler_GetCampaign(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(MockCampaignService)
		handler := NewCampaignHandler(svc)

		svc.On("Get", mock.Anything, int64(7)).Return(&model.Campaign{ID: 7}, nil)

		ctx := setupTestContext("GET", "/api/v1/campaign/7", nil)
		ctx.SetUserValue("id", "7")
		handler.GetCampaign(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
	})

	t.Run("missing maps to 404", func(t *testing.T) {
		svc := new(MockCampaignService)
		handler := NewCampaignHandler(svc)

		svc.On("Get", mock.Anything, int64(9)).Return(nil, apperr.NotFound("campaign not found"))

		ctx := setupTestContext("GET", "/api/v1/campaign/9", nil)
		ctx.SetUserValue("id", "9")
		handler.GetCampaign(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())
	})

	t.Run("non-numeric id", func(t *testing.T) {
		svc := new(MockCampaignService)
		handler := NewCampaignHandler(svc)

		ctx := setupTestContext("GET", "/api/v1/campaign/abc", nil)
		ctx.SetUserValue("id", "abc")
		handler.GetCampaign(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}

func TestCampaignHandler_ListCampaigns(t *testing.T) {
	t.Run("passes filters through", func(t *testing.T) {
		svc := new(MockCampaignService)
		handler := NewCampaignHandler(svc)

		svc.On("List", mock.Anything, mock.MatchedBy(func(f model.CampaignFilter) bool {
			return f.Type != nil && *f.Type == model.CampaignTypeDonation &&
				f.IsActive != nil && *f.IsActive && f.Page == 2 && f.PageSize == 5
		})).Return([]*model.Campaign{}, model.Pagination{Page: 2, PageSize: 5}, nil)

		ctx := setupTestContext("GET", "/api/v1/campaigns?type=donation&is_active=true&page=2&page_size=5", nil)
		handler.ListCampaigns(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("malformed page is rejected", func(t *testing.T) {
		svc := new(MockCampaignService)
		handler := NewCampaignHandler(svc)

		svc.On("List", mock.Anything, mock.MatchedBy(func(f model.CampaignFilter) bool {
			return f.Page == -1
		})).Return(nil, model.Pagination{}, apperr.Validation("page must be at least 1"))

		ctx := setupTestContext("GET", "/api/v1/campaigns?page=abc", nil)
		handler.ListCampaigns(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})
}

func TestCampaignHandler_GetCampaignByContract(t *testing.T) {
	creator := handlerAddress("c")

	t.Run("resolves by pair", func(t *testing.T) {
		svc := new(MockCampaignService)
		handler := NewCampaignHandler(svc)

		svc.On("ResolveByContract", mock.Anything, int64(4), creator).Return(&model.Campaign{ID: 40}, nil)

		ctx := setupTestContext("GET", "/api/v1/campaign-contract?contract_id=4&creator_address="+creator, nil)
		handler.GetCampaignByContract(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
	})

	t.Run("missing creator address", func(t *testing.T) {
		svc := new(MockCampaignService)
		handler := NewCampaignHandler(svc)

		ctx := setupTestContext("GET", "/api/v1/campaign-contract?contract_id=4", nil)
		handler.GetCampaignByContract(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "ResolveByContract", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCampaignHandler_CreateMemo(t *testing.T) {
	creator := handlerAddress("c")
	supporter := handlerAddress("d")

	memoBody := func() []byte {
		b, _ := json.Marshal(model.MemoCreateRequest{
			ContractID:      1,
			CreatorAddress:  creator,
			Memo:            "keep going",
			TransactionHash: "0xhash",
			Type:            model.MemoTypeDonation,
			UserAddress:     supporter,
			Amount:          100_000_000,
		})
		return b
	}

	t.Run("successful ingestion", func(t *testing.T) {
		svc := new(MockCampaignService)
		handler := NewCampaignHandler(svc)

		svc.On("IngestMemo", mock.Anything, mock.MatchedBy(func(p model.MemoCreateRequest) bool {
			return p.TransactionHash == "0xhash" && p.Amount == 100_000_000
		})).Return(&model.Memo{ID: 1, TransactionHash: "0xhash"}, nil)

		ctx := setupTestContext("POST", "/api/v1/create-memo", memoBody())
		handler.CreateMemo(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
	})

	t.Run("duplicate hash maps to 409", func(t *testing.T) {
		svc := new(MockCampaignService)
		handler := NewCampaignHandler(svc)

		svc.On("IngestMemo", mock.Anything, mock.Anything).Return(nil, apperr.Conflict("duplicate transaction"))

		ctx := setupTestContext("POST", "/api/v1/create-memo", memoBody())
		handler.CreateMemo(ctx)

		assert.Equal(t, 409, ctx.Response.StatusCode())

		var response map[string]string
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, "duplicate transaction", response["error"])
	})
}

func TestCampaignHandler_ListCampaignMemos(t *testing.T) {
	t.Run("pages memos", func(t *testing.T) {
		svc := new(MockCampaignService)
		handler := NewCampaignHandler(svc)

		svc.On("ListMemos", mock.Anything, int64(7), model.PageRequest{Page: 1, PageSize: model.DefaultPageSize}).
			Return([]*model.Memo{{ID: 1}}, model.Pagination{Page: 1, PageSize: model.DefaultPageSize, TotalItems: 1, TotalPages: 1}, nil)

		ctx := setupTestContext("GET", "/api/v1/campaign/7/memos", nil)
		ctx.SetUserValue("id", "7")
		handler.ListCampaignMemos(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())

		var response pageResponse
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, int64(1), response.TotalItems)
	})
}
