package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/mbeoliero/haven/internal/middleware"
	"github.com/mbeoliero/haven/internal/service"
	"github.com/mbeoliero/haven/pkg/errcode"
	"github.com/mbeoliero/haven/pkg/response"
)

// AuthHandler handles session requests. Tokens are issued elsewhere.
type AuthHandler struct {
	identity *service.IdentityService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(identity *service.IdentityService) *AuthHandler {
	return &AuthHandler{identity: identity}
}

// MeResponse describes the caller
type MeResponse struct {
	Id          string `json:"id"`
	Role        string `json:"role"`
	ProfileId   string `json:"profile_id,omitempty"`
	DisplayName string `json:"display_name"`
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(ctx context.Context, c *app.RequestContext) {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	response.Success(ctx, c, &MeResponse{
		Id:          principal.Id,
		Role:        string(principal.Role),
		ProfileId:   principal.ProfileId,
		DisplayName: principal.DisplayName,
	})
}

// Logout handles POST /auth/logout by revoking the presented token
func (h *AuthHandler) Logout(ctx context.Context, c *app.RequestContext) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	if err := h.identity.Logout(ctx, claims); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}
