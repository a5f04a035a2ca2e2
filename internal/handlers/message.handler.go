package handlers

import (
	"context"
	"strconv"

	"github.com/fasthttp/router"
	"github.com/patronlabs/patron-gateway/internal/model"
	xhttp "github.com/patronlabs/patron-gateway/pkg/http"
)

type ConversationService interface {
	Send(ctx context.Context, p model.MessageSendRequest) (*model.ChatMessage, error)
	ListUserMessages(ctx context.Context, address string, page model.PageRequest) ([]*model.ChatMessage, model.Pagination, error)
	GetThread(ctx context.Context, userAddress, otherAddress string, campaignID *int64, page model.PageRequest) ([]*model.ChatMessage, model.Pagination, error)
}

type MessageHandler struct {
	svc ConversationService
}

func RegisterMessageRoutes(e *router.Group, h *MessageHandler) {
	e.POST("/messages", h.SendMessage)
	e.GET("/messages/user", h.ListUserMessages)
	e.GET("/messages/conversation/{userAddress}/{otherAddress}", h.GetThread)
}

func NewMessageHandler(conversationService ConversationService) *MessageHandler {
	return &MessageHandler{
		svc: conversationService,
	}
}

func (h *MessageHandler) SendMessage(ctx *xhttp.RequestCtx) {
	var req model.MessageSendRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	msg, err := h.svc.Send(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, msg)
}

func (h *MessageHandler) ListUserMessages(ctx *xhttp.RequestCtx) {
	address := query(ctx, "address")
	if address == "" {
		writeError(ctx, 400, "address is required")
		return
	}
	items, pagination, err := h.svc.ListUserMessages(ctx, address, pageRequest(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writePage(ctx, items, pagination)
}

func (h *MessageHandler) GetThread(ctx *xhttp.RequestCtx) {
	userAddress := pathString(ctx, "userAddress")
	otherAddress := pathString(ctx, "otherAddress")

	var campaignID *int64
	if v := query(ctx, "campaign_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(ctx, 400, "invalid campaign id")
			return
		}
		campaignID = &id
	}

	items, pagination, err := h.svc.GetThread(ctx, userAddress, otherAddress, campaignID, pageRequest(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writePage(ctx, items, pagination)
}
