package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/mbeoliero/haven/internal/middleware"
	"github.com/mbeoliero/haven/internal/service"
	"github.com/mbeoliero/haven/pkg/errcode"
	"github.com/mbeoliero/haven/pkg/response"
)

// MessageHandler handles message-related requests
type MessageHandler struct {
	msgService *service.MessageService
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(msgService *service.MessageService) *MessageHandler {
	return &MessageHandler{msgService: msgService}
}

// SendMessageRequest is the body of a send
type SendMessageRequest struct {
	Text string `json:"text"`
}

// SendMessage handles POST /chat/conversations/:id/messages
func (h *MessageHandler) SendMessage(ctx context.Context, c *app.RequestContext) {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req SendMessageRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	msg, err := h.msgService.SendMessage(ctx, principal, c.Param("id"), req.Text)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, msg)
}

// GetMessages handles GET /chat/conversations/:id/messages
func (h *MessageHandler) GetMessages(ctx context.Context, c *app.RequestContext) {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	msgs, err := h.msgService.GetMessages(ctx, principal, c.Param("id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, msgs)
}

// MarkAsRead handles POST /chat/conversations/:id/read
func (h *MessageHandler) MarkAsRead(ctx context.Context, c *app.RequestContext) {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	receipt, err := h.msgService.MarkAsRead(ctx, principal, c.Param("id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, receipt)
}
