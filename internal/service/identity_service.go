package service

import (
	"context"

	"github.com/mbeoliero/haven/common"
	"github.com/mbeoliero/haven/pkg/errcode"
	"github.com/mbeoliero/haven/pkg/jwt"
	"github.com/mbeoliero/kit/log"
)

// TokenVerifier turns a bearer token into verified claims
type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, error)
}

// IdentityService resolves bearer tokens into principals for HTTP and WebSocket callers
type IdentityService struct {
	verifier TokenVerifier
	revoker  TokenRevoker
	dir      Directory
}

// NewIdentityService creates a new IdentityService. revoker may be nil.
func NewIdentityService(verifier TokenVerifier, revoker TokenRevoker, dir Directory) *IdentityService {
	return &IdentityService{
		verifier: verifier,
		revoker:  revoker,
		dir:      dir,
	}
}

// Authenticate verifies token and resolves the caller's role profile
func (s *IdentityService) Authenticate(ctx context.Context, token string) (*common.Principal, *jwt.Claims, error) {
	claims, err := s.verifier.Verify(token)
	if err != nil {
		return nil, nil, err
	}

	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(ctx, claims)
		if err != nil {
			log.CtxError(ctx, "check token revocation failed: account_id=%s, error=%v", claims.AccountId(), err)
			return nil, nil, errcode.ErrInternalServer
		}
		if revoked {
			return nil, nil, errcode.ErrTokenRevoked
		}
	}

	role, err := common.ParseRole(claims.Role)
	if err != nil {
		return nil, nil, errcode.ErrTokenInvalid.Wrap(err)
	}

	principal := &common.Principal{Id: claims.AccountId(), Role: role}

	account, err := s.dir.GetAccount(ctx, principal.Id)
	if err != nil {
		log.CtxError(ctx, "get account failed: account_id=%s, error=%v", principal.Id, err)
		return nil, nil, errcode.ErrInternalServer
	}
	if account != nil {
		principal.DisplayName = account.DisplayName
	}

	if role.HasProfile() {
		profile, err := s.dir.ProfileForAccount(ctx, role, principal.Id)
		if err != nil {
			log.CtxError(ctx, "resolve profile failed: principal=%s, error=%v", principal, err)
			return nil, nil, errcode.ErrInternalServer
		}
		if profile.Active() {
			principal.ProfileId = profile.Id
			if profile.Name != "" {
				principal.DisplayName = profile.Name
			}
		} else {
			// Without a profile every access check fails, which is the intended outcome.
			log.CtxWarn(ctx, "principal has no active profile: principal=%s", principal)
		}
	}

	if principal.DisplayName == "" {
		principal.DisplayName = principal.Id
	}
	return principal, claims, nil
}

// Logout revokes the presented token for the rest of its lifetime
func (s *IdentityService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.revoker == nil || claims == nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims); err != nil {
		log.CtxError(ctx, "revoke token failed: account_id=%s, error=%v", claims.AccountId(), err)
		return errcode.ErrInternalServer
	}
	log.CtxInfo(ctx, "token revoked: account_id=%s", claims.AccountId())
	return nil
}
