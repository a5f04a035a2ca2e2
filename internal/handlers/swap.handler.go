package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/patronlabs/patron-gateway/internal/model"
	xhttp "github.com/patronlabs/patron-gateway/pkg/http"
)

type SwapService interface {
	Process(ctx context.Context, p model.SwapProcessRequest) (*model.SwapResult, error)
}

type SwapHandler struct {
	svc SwapService
}

func RegisterSwapRoutes(e *router.Group, h *SwapHandler) {
	e.POST("/swap/process", h.ProcessSwap)
}

func NewSwapHandler(swapService SwapService) *SwapHandler {
	return &SwapHandler{
		svc: swapService,
	}
}

func (h *SwapHandler) ProcessSwap(ctx *xhttp.RequestCtx) {
	var req model.SwapProcessRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	result, err := h.svc.Process(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, result)
}
