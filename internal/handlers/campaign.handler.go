package handlers

import (
	"context"
	"strconv"

	"github.com/fasthttp/router"
	"github.com/patronlabs/patron-gateway/internal/model"
	xhttp "github.com/patronlabs/patron-gateway/pkg/http"
)

type CampaignService interface {
	Create(ctx context.Context, p model.CampaignCreateRequest) (*model.Campaign, error)
	Get(ctx context.Context, id int64) (*model.Campaign, error)
	List(ctx context.Context, f model.CampaignFilter) ([]*model.Campaign, model.Pagination, error)
	ListByCreatorAddress(ctx context.Context, address string, f model.CampaignFilter) ([]*model.Campaign, model.Pagination, error)
	ResolveByContract(ctx context.Context, contractID int64, creatorAddress string) (*model.Campaign, error)
	ListMemos(ctx context.Context, campaignID int64, page model.PageRequest) ([]*model.Memo, model.Pagination, error)
	IngestMemo(ctx context.Context, p model.MemoCreateRequest) (*model.Memo, error)
}

type CampaignHandler struct {
	svc CampaignService
}

func RegisterCampaignRoutes(e *router.Group, h *CampaignHandler) {
	e.POST("/create-campaign", h.CreateCampaign)
	e.GET("/campaign/{id}", h.GetCampaign)
	e.GET("/campaign/{id}/memos", h.ListCampaignMemos)
	e.GET("/campaigns", h.ListCampaigns)
	e.GET("/user/campaigns", h.ListUserCampaigns)
	e.GET("/campaign-contract", h.GetCampaignByContract)
	e.POST("/create-memo", h.CreateMemo)
}

func NewCampaignHandler(campaignService CampaignService) *CampaignHandler {
	return &CampaignHandler{
		svc: campaignService,
	}
}

func (h *CampaignHandler) CreateCampaign(ctx *xhttp.RequestCtx) {
	var req model.CampaignCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	c, err := h.svc.Create(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, c)
}

func (h *CampaignHandler) GetCampaign(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid campaign id")
		return
	}
	c, err := h.svc.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, c)
}

func (h *CampaignHandler) ListCampaigns(ctx *xhttp.RequestCtx) {
	f := campaignFilter(ctx)
	items, pagination, err := h.svc.List(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writePage(ctx, items, pagination)
}

func (h *CampaignHandler) ListUserCampaigns(ctx *xhttp.RequestCtx) {
	address := query(ctx, "address")
	if address == "" {
		writeError(ctx, 400, "address is required")
		return
	}
	f := campaignFilter(ctx)
	items, pagination, err := h.svc.ListByCreatorAddress(ctx, address, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writePage(ctx, items, pagination)
}

func (h *CampaignHandler) GetCampaignByContract(ctx *xhttp.RequestCtx) {
	contractID, err := strconv.ParseInt(query(ctx, "contract_id"), 10, 64)
	if err != nil {
		writeError(ctx, 400, "invalid contract id")
		return
	}
	creator := query(ctx, "creator_address")
	if creator == "" {
		writeError(ctx, 400, "creator_address is required")
		return
	}
	c, err := h.svc.ResolveByContract(ctx, contractID, creator)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, c)
}

func (h *CampaignHandler) ListCampaignMemos(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid campaign id")
		return
	}
	items, pagination, err := h.svc.ListMemos(ctx, id, pageRequest(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writePage(ctx, items, pagination)
}

func (h *CampaignHandler) CreateMemo(ctx *xhttp.RequestCtx) {
	var req model.MemoCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	m, err := h.svc.IngestMemo(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, m)
}

func campaignFilter(ctx *xhttp.RequestCtx) model.CampaignFilter {
	f := model.CampaignFilter{
		Page:     queryInt(ctx, "page", 1),
		PageSize: queryInt(ctx, "page_size", model.DefaultPageSize),
	}
	if v := query(ctx, "type"); v != "" {
		t := model.CampaignType(v)
		f.Type = &t
	}
	if v := query(ctx, "is_active"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.IsActive = &b
		}
	}
	return f
}

func pageRequest(ctx *xhttp.RequestCtx) model.PageRequest {
	return model.PageRequest{
		Page:     queryInt(ctx, "page", 1),
		PageSize: queryInt(ctx, "page_size", model.DefaultPageSize),
	}
}

func writePage(ctx *xhttp.RequestCtx, items any, p model.Pagination) {
	writeJSON(ctx, 200, pageResponse{
		Items:      items,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalItems: p.TotalItems,
		TotalPages: p.TotalPages,
		HasNext:    p.HasNext,
		HasPrev:    p.HasPrev,
	})
}
