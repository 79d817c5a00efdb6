package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/mbeoliero/haven/internal/middleware"
	"github.com/mbeoliero/haven/internal/service"
	"github.com/mbeoliero/haven/pkg/errcode"
	"github.com/mbeoliero/haven/pkg/response"
)

// ConversationHandler handles conversation-related requests
type ConversationHandler struct {
	convService *service.ConversationService
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(convService *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{convService: convService}
}

// GetOrCreateRequest names the two parties of a conversation.
// CounterpartyId may be an organization or a merchant.
type GetOrCreateRequest struct {
	HomelessId     string `json:"homeless_id"`
	CounterpartyId string `json:"counterparty_id"`
}

// GetOrCreate handles POST /chat/conversations
func (h *ConversationHandler) GetOrCreate(ctx context.Context, c *app.RequestContext) {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req GetOrCreateRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	conv, err := h.convService.GetOrCreate(ctx, principal, req.HomelessId, req.CounterpartyId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, conv)
}

// GetOrCreateByPath handles GET /chat/:homeless_id/:counterparty_id
func (h *ConversationHandler) GetOrCreateByPath(ctx context.Context, c *app.RequestContext) {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	conv, err := h.convService.GetOrCreate(ctx, principal, c.Param("homeless_id"), c.Param("counterparty_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, conv)
}

// ListConversations handles GET /chat/conversations
func (h *ConversationHandler) ListConversations(ctx context.Context, c *app.RequestContext) {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	convs, err := h.convService.ListConversations(ctx, principal)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, convs)
}

// GetConversation handles GET /chat/conversations/:id
func (h *ConversationHandler) GetConversation(ctx context.Context, c *app.RequestContext) {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	conv, err := h.convService.GetConversation(ctx, principal, c.Param("id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, conv)
}

// DeleteConversation handles DELETE /chat/conversations/:id
func (h *ConversationHandler) DeleteConversation(ctx context.Context, c *app.RequestContext) {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	if err := h.convService.SoftDelete(ctx, principal, c.Param("id")); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}
