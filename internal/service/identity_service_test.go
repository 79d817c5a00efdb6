package service

import (
	"context"
	"errors"
	"testing"

	"github.com/mbeoliero/haven/common"
	"github.com/mbeoliero/haven/pkg/errcode"
	"github.com/mbeoliero/haven/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRevoker map[string]bool

func (m memRevoker) IsRevoked(_ context.Context, c *jwt.Claims) (bool, error) {
	return m[c.TokenId()], nil
}

func (m memRevoker) Revoke(_ context.Context, c *jwt.Claims) error {
	m[c.TokenId()] = true
	return nil
}

func TestAuthenticate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	revoker := memRevoker{}
	svc := NewIdentityService(jwt.NewVerifier("secret", "haven"), revoker, f.dir)

	token, err := jwt.GenerateToken(f.merchant.Id, common.RoleMerchant, "secret", "haven", 1)
	require.NoError(t, err)

	principal, claims, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, f.merchant.Id, principal.Id)
	assert.Equal(t, common.RoleMerchant, principal.Role)
	assert.Equal(t, f.merchant.ProfileId, principal.ProfileId)
	assert.Equal(t, "Corner Bakery", principal.DisplayName)

	require.NoError(t, svc.Logout(ctx, claims))
	_, _, err = svc.Authenticate(ctx, token)
	assert.True(t, errors.Is(err, errcode.ErrTokenRevoked))
}

func TestAuthenticate_Rejects(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := NewIdentityService(jwt.NewVerifier("secret", ""), nil, f.dir)

	_, _, err := svc.Authenticate(ctx, "")
	assert.True(t, errors.Is(err, errcode.ErrTokenMissing))

	_, _, err = svc.Authenticate(ctx, "garbage")
	assert.True(t, errors.Is(err, errcode.ErrTokenInvalid))

	token, err := jwt.GenerateToken("acc-1", common.RoleType("volunteer"), "secret", "", 1)
	require.NoError(t, err)
	_, _, err = svc.Authenticate(ctx, token)
	assert.True(t, errors.Is(err, errcode.ErrTokenInvalid))
}

func TestAuthenticate_AdminAndMissingProfile(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := NewIdentityService(jwt.NewVerifier("secret", ""), nil, f.dir)

	token, err := jwt.GenerateToken("acc-admin", common.RoleAdmin, "secret", "", 1)
	require.NoError(t, err)
	principal, _, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Empty(t, principal.ProfileId)
	assert.Equal(t, "acc-admin", principal.DisplayName)

	token, err = jwt.GenerateToken("acc-orphan", common.RoleHomeless, "secret", "", 1)
	require.NoError(t, err)
	principal, _, err = svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Empty(t, principal.ProfileId)
}
