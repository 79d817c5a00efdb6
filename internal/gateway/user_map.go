package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mbeoliero/haven/internal/service"
	"github.com/mbeoliero/haven/pkg/constant"
	"github.com/mbeoliero/kit/log"
	"github.com/redis/go-redis/v9"
)

// UserMap tracks the live connections of each principal and mirrors
// presence into Redis so other instances can see who is online.
type UserMap struct {
	mu    sync.RWMutex
	users map[string]*userConns // principal id -> connections
	rdb   *redis.Client
	ttl   time.Duration
}

var _ service.Presence = (*UserMap)(nil)

type userConns struct {
	clients map[string]*Client // conn id -> client
	since   time.Time
}

// NewUserMap creates a new UserMap; rdb may be nil to keep presence local
func NewUserMap(rdb *redis.Client, ttl time.Duration) *UserMap {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &UserMap{
		users: make(map[string]*userConns),
		rdb:   rdb,
		ttl:   ttl,
	}
}

// Register adds client and reports whether it is the principal's first connection
func (m *UserMap) Register(ctx context.Context, client *Client) bool {
	m.mu.Lock()
	uc, exists := m.users[client.UserId]
	if !exists {
		uc = &userConns{clients: make(map[string]*Client, 2), since: time.Now()}
		m.users[client.UserId] = uc
	}
	uc.clients[client.ConnId] = client
	m.mu.Unlock()

	m.setOnline(ctx, client.UserId)
	return !exists
}

// Unregister removes client and reports whether the principal went offline
func (m *UserMap) Unregister(ctx context.Context, client *Client) bool {
	m.mu.Lock()
	uc, exists := m.users[client.UserId]
	if !exists {
		m.mu.Unlock()
		return false
	}
	delete(uc.clients, client.ConnId)
	offline := len(uc.clients) == 0
	if offline {
		delete(m.users, client.UserId)
	}
	m.mu.Unlock()

	if offline {
		m.setOffline(ctx, client.UserId)
	}
	return offline
}

// HasConnection checks if user has any local connection
func (m *UserMap) HasConnection(userId string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.users[userId]
	return exists
}

// OnlineUserCount returns the number of locally connected principals
func (m *UserMap) OnlineUserCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

// IsOnline checks local connections first, then Redis for other instances
func (m *UserMap) IsOnline(ctx context.Context, userId string) bool {
	if m.HasConnection(userId) {
		return true
	}
	if m.rdb == nil {
		return false
	}
	n, err := m.rdb.Exists(ctx, onlineKey(userId)).Result()
	if err != nil {
		log.CtxDebug(ctx, "check online status failed: user_id=%s, error=%v", userId, err)
		return false
	}
	return n > 0
}

// RefreshOnlineStatus extends the presence TTL while the principal stays connected
func (m *UserMap) RefreshOnlineStatus(ctx context.Context, userId string) {
	if m.rdb == nil || !m.HasConnection(userId) {
		return
	}
	if err := m.rdb.Expire(ctx, onlineKey(userId), m.ttl).Err(); err != nil {
		log.CtxDebug(ctx, "refresh online status failed: user_id=%s, error=%v", userId, err)
	}
}

func (m *UserMap) setOnline(ctx context.Context, userId string) {
	if m.rdb == nil {
		return
	}
	if err := m.rdb.Set(ctx, onlineKey(userId), "1", m.ttl).Err(); err != nil {
		log.CtxDebug(ctx, "set online failed: user_id=%s, error=%v", userId, err)
	}
}

func (m *UserMap) setOffline(ctx context.Context, userId string) {
	if m.rdb == nil {
		return
	}
	if err := m.rdb.Del(ctx, onlineKey(userId)).Err(); err != nil {
		log.CtxDebug(ctx, "set offline failed: user_id=%s, error=%v", userId, err)
	}
}

func onlineKey(userId string) string {
	return fmt.Sprintf(constant.RedisKeyOnline(), userId)
}
