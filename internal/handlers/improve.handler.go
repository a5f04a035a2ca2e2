package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/patronlabs/patron-gateway/internal/model"
	xhttp "github.com/patronlabs/patron-gateway/pkg/http"
)

type ImproveService interface {
	Improve(ctx context.Context, p model.ImproveRequest) (*model.ImproveResult, error)
}

type ImproveHandler struct {
	svc ImproveService
}

func RegisterImproveRoutes(e *router.Group, h *ImproveHandler) {
	e.POST("/improve-campaign", h.ImproveCampaign)
}

func NewImproveHandler(improveService ImproveService) *ImproveHandler {
	return &ImproveHandler{
		svc: improveService,
	}
}

func (h *ImproveHandler) ImproveCampaign(ctx *xhttp.RequestCtx) {
	var req model.ImproveRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	result, err := h.svc.Improve(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, result)
}
