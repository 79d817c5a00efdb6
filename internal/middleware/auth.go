package middleware

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/mbeoliero/haven/common"
	"github.com/mbeoliero/haven/pkg/errcode"
	"github.com/mbeoliero/haven/pkg/jwt"
	"github.com/mbeoliero/haven/pkg/response"
	"github.com/mbeoliero/kit/log"
)

const (
	// AuthorizationHeader is the header key for authorization
	AuthorizationHeader = "Authorization"
	// PrincipalKey is the context key for the authenticated principal
	PrincipalKey = "principal"
	// ClaimsKey is the context key for the verified token claims
	ClaimsKey = "claims"
)

// Authenticator turns a bearer token into a principal
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*common.Principal, *jwt.Claims, error)
}

// Auth is the bearer-token authentication middleware
func Auth(auth Authenticator) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		header := string(c.GetHeader(AuthorizationHeader))
		if header == "" {
			response.Unauthorized(ctx, c, errcode.ErrTokenMissing)
			c.Abort()
			return
		}

		token := jwt.FromAuthorizationHeader(header)
		if token == "" {
			response.Unauthorized(ctx, c, errcode.ErrTokenInvalid)
			c.Abort()
			return
		}

		principal, claims, err := auth.Authenticate(ctx, token)
		if err != nil {
			e, ok := errcode.As(err)
			if !ok {
				log.CtxError(ctx, "authenticate request failed: error=%v", err)
				e = errcode.ErrUnauthorized
			}
			response.Unauthorized(ctx, c, e)
			c.Abort()
			return
		}

		c.Set(PrincipalKey, principal)
		c.Set(ClaimsKey, claims)

		c.Next(ctx)
	}
}

// GetPrincipal gets the authenticated principal from context
func GetPrincipal(c *app.RequestContext) *common.Principal {
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(*common.Principal); ok {
			return p
		}
	}
	return nil
}

// GetClaims gets the verified token claims from context
func GetClaims(c *app.RequestContext) *jwt.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*jwt.Claims); ok {
			return claims
		}
	}
	return nil
}
