package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/patronlabs/patron-gateway/internal/model"
	xhttp "github.com/patronlabs/patron-gateway/pkg/http"
)

type UserService interface {
	Create(ctx context.Context, p model.UserCreateRequest) (*model.User, error)
	Profile(ctx context.Context, address string) (*model.User, error)
	UpdateProfile(ctx context.Context, p model.UserUpdateRequest) (*model.User, error)
}

type UserHandler struct {
	svc UserService
}

func RegisterUserRoutes(e *router.Group, h *UserHandler) {
	e.POST("/create-user", h.CreateUser)
	e.POST("/profile", h.GetProfile)
	e.PUT("/update-profile", h.UpdateProfile)
}

func NewUserHandler(userService UserService) *UserHandler {
	return &UserHandler{
		svc: userService,
	}
}

func (h *UserHandler) CreateUser(ctx *xhttp.RequestCtx) {
	var req model.UserCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	u, err := h.svc.Create(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, u)
}

func (h *UserHandler) GetProfile(ctx *xhttp.RequestCtx) {
	var req struct {
		Address string `json:"address"`
	}
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	u, err := h.svc.Profile(ctx, req.Address)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, u)
}

func (h *UserHandler) UpdateProfile(ctx *xhttp.RequestCtx) {
	var req model.UserUpdateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	u, err := h.svc.UpdateProfile(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, u)
}
