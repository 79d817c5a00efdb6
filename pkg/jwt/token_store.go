package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/mbeoliero/haven/pkg/constant"
	"github.com/redis/go-redis/v9"
)

// RevocationStore keeps revoked tokens in Redis until they would have expired anyway
type RevocationStore struct {
	rdb        *redis.Client
	defaultTTL time.Duration
}

// NewRevocationStore creates a new RevocationStore
func NewRevocationStore(rdb *redis.Client, expireHours int) *RevocationStore {
	return &RevocationStore{
		rdb:        rdb,
		defaultTTL: time.Duration(expireHours) * time.Hour,
	}
}

func (s *RevocationStore) key(tokenId string) string {
	return fmt.Sprintf(constant.RedisKeyRevokedToken(), tokenId)
}

// Revoke marks a token as unusable for the rest of its lifetime
func (s *RevocationStore) Revoke(ctx context.Context, claims *Claims) error {
	ttl := claims.TTL()
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	if err := s.rdb.Set(ctx, s.key(claims.TokenId()), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked checks whether a token was revoked
func (s *RevocationStore) IsRevoked(ctx context.Context, claims *Claims) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(claims.TokenId())).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}
