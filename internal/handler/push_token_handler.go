package handler

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/mbeoliero/haven/internal/middleware"
	"github.com/mbeoliero/haven/internal/service"
	"github.com/mbeoliero/haven/pkg/constant"
	"github.com/mbeoliero/haven/pkg/errcode"
	"github.com/mbeoliero/haven/pkg/response"
	"github.com/mbeoliero/kit/log"
)

// PushTokenHandler registers device tokens for the caller
type PushTokenHandler struct {
	registry service.PushTokenRegistry
}

// NewPushTokenHandler creates a new PushTokenHandler
func NewPushTokenHandler(registry service.PushTokenRegistry) *PushTokenHandler {
	return &PushTokenHandler{registry: registry}
}

// PushTokenRequest carries one device token
type PushTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func normalizePlatform(p string) (string, bool) {
	switch p = strings.ToLower(strings.TrimSpace(p)); p {
	case "":
		return constant.PlatformUnknown, true
	case constant.PlatformIOS, constant.PlatformAndroid, constant.PlatformWeb, constant.PlatformUnknown:
		return p, true
	}
	return "", false
}

// Register handles POST /push/token
func (h *PushTokenHandler) Register(ctx context.Context, c *app.RequestContext) {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req PushTokenRequest
	if err := c.BindAndValidate(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam.WithMsg("token is required"))
		return
	}
	platform, ok := normalizePlatform(req.Platform)
	if !ok {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam.WithMsg("unsupported platform"))
		return
	}

	if err := h.registry.Register(ctx, principal.Id, strings.TrimSpace(req.Token), platform); err != nil {
		log.CtxError(ctx, "register push token failed: principal=%s, error=%v", principal, err)
		response.ErrorWithCode(ctx, c, errcode.ErrInternalServer)
		return
	}

	response.Success(ctx, c, nil)
}

// Unregister handles DELETE /push/token
func (h *PushTokenHandler) Unregister(ctx context.Context, c *app.RequestContext) {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req PushTokenRequest
	if err := c.BindAndValidate(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam.WithMsg("token is required"))
		return
	}

	if err := h.registry.Unregister(ctx, principal.Id, strings.TrimSpace(req.Token)); err != nil {
		log.CtxError(ctx, "unregister push token failed: principal=%s, error=%v", principal, err)
		response.ErrorWithCode(ctx, c, errcode.ErrInternalServer)
		return
	}

	response.Success(ctx, c, nil)
}
