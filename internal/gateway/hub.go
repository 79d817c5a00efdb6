package gateway

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/mbeoliero/haven/internal/metrics"
	"github.com/mbeoliero/haven/internal/service"
	"github.com/mbeoliero/haven/pkg/constant"
	"github.com/mbeoliero/kit/log"
)

var _ service.Broadcaster = (*Hub)(nil)

// Hub owns every live connection on this instance, the channels they are
// subscribed to, and the push workers that fan events out.
//
// Each connection is subscribed to its personal channel user:<principalId>
// on registration and to conv:<id> channels on demand.
type Hub struct {
	mu          sync.RWMutex
	channels    map[string]map[string]*Client  // channel -> conn id -> client
	memberships map[string]map[string]struct{} // conn id -> channels

	users     *UserMap
	pushChan  chan *pushTask
	workerNum int
	connNum   atomic.Int64
}

// pushTask is one encoded frame bound for one channel
type pushTask struct {
	channel string
	exclude string // principal id skipped on delivery
	frame   []byte
}

// NewHub creates a Hub; pushes beyond queueSize are dropped
func NewHub(users *UserMap, queueSize, workerNum int) *Hub {
	if users == nil {
		users = NewUserMap(nil, 0)
	}
	if queueSize <= 0 {
		queueSize = 10000
	}
	if workerNum <= 0 {
		workerNum = 10
	}
	return &Hub{
		channels:    make(map[string]map[string]*Client),
		memberships: make(map[string]map[string]struct{}),
		users:       users,
		pushChan:    make(chan *pushTask, queueSize),
		workerNum:   workerNum,
	}
}

// Run starts the push workers; they exit when ctx is done
func (h *Hub) Run(ctx context.Context) {
	for i := 0; i < h.workerNum; i++ {
		go h.pushLoop(ctx)
	}
	log.Info("started %d push workers", h.workerNum)
}

func (h *Hub) pushLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-h.pushChan:
			h.deliver(task)
		}
	}
}

// deliver writes one frame to every subscriber of the task's channel
func (h *Hub) deliver(task *pushTask) int {
	h.mu.RLock()
	subscribers := make([]*Client, 0, len(h.channels[task.channel]))
	for _, c := range h.channels[task.channel] {
		if task.exclude != "" && c.UserId == task.exclude {
			continue
		}
		subscribers = append(subscribers, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range subscribers {
		if err := c.Push(task.frame); err != nil {
			if errors.Is(err, ErrWriteChannelFull) {
				metrics.WsPushDropped.WithLabelValues("conn").Inc()
			}
			log.Debug("push to client failed: channel=%s, user_id=%s, conn_id=%s, error=%v",
				task.channel, c.UserId, c.ConnId, err)
			continue
		}
		delivered++
	}
	return delivered
}

// Register tracks client and subscribes it to its personal channel
func (h *Hub) Register(ctx context.Context, client *Client) {
	h.mu.Lock()
	h.memberships[client.ConnId] = make(map[string]struct{}, 4)
	h.subscribeLocked(constant.UserChannel(client.UserId), client)
	h.mu.Unlock()

	first := h.users.Register(ctx, client)
	conns := h.connNum.Add(1)
	metrics.WsConnections.Inc()

	log.CtxInfo(ctx, "client registered: user=%s, conn_id=%s, first_conn=%v, online_users=%d, online_conns=%d",
		client.Principal, client.ConnId, first, h.users.OnlineUserCount(), conns)
}

// Unregister drops client from every channel. Calling it twice is harmless.
func (h *Hub) Unregister(ctx context.Context, client *Client) {
	h.mu.Lock()
	joined, ok := h.memberships[client.ConnId]
	if !ok {
		h.mu.Unlock()
		return
	}
	for channel := range joined {
		h.unsubscribeLocked(channel, client.ConnId)
	}
	delete(h.memberships, client.ConnId)
	h.mu.Unlock()

	offline := h.users.Unregister(ctx, client)
	conns := h.connNum.Add(-1)
	metrics.WsConnections.Dec()

	log.CtxInfo(ctx, "client unregistered: user=%s, conn_id=%s, user_offline=%v, online_users=%d, online_conns=%d",
		client.Principal, client.ConnId, offline, h.users.OnlineUserCount(), conns)
}

// Subscribe adds a registered client to channel; unregistered clients are ignored
func (h *Hub) Subscribe(channel string, client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.memberships[client.ConnId]; !ok {
		return false
	}
	h.subscribeLocked(channel, client)
	return true
}

// Unsubscribe removes client from channel
func (h *Hub) Unsubscribe(channel string, client *Client) {
	h.mu.Lock()
	h.unsubscribeLocked(channel, client.ConnId)
	h.mu.Unlock()
}

func (h *Hub) subscribeLocked(channel string, client *Client) {
	subs := h.channels[channel]
	if subs == nil {
		subs = make(map[string]*Client)
		h.channels[channel] = subs
	}
	subs[client.ConnId] = client
	h.memberships[client.ConnId][channel] = struct{}{}
}

func (h *Hub) unsubscribeLocked(channel, connId string) {
	if subs := h.channels[channel]; subs != nil {
		delete(subs, connId)
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}
	if joined := h.memberships[connId]; joined != nil {
		delete(joined, channel)
	}
}

// BroadcastToConversation queues event for every subscriber of conv:<id> except excludeUserId
func (h *Hub) BroadcastToConversation(ctx context.Context, conversationId string, event *service.Event, excludeUserId string) {
	h.enqueue(ctx, constant.ConversationChannel(conversationId), event, excludeUserId)
}

// BroadcastToUser queues event for every connection of userId
func (h *Hub) BroadcastToUser(ctx context.Context, userId string, event *service.Event) {
	h.enqueue(ctx, constant.UserChannel(userId), event, "")
}

// ConversationHasSubscriber reports whether any local connection joined the conversation
func (h *Hub) ConversationHasSubscriber(conversationId string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[constant.ConversationChannel(conversationId)]) > 0
}

// enqueue never blocks: with a full queue the frame is dropped
func (h *Hub) enqueue(ctx context.Context, channel string, event *service.Event, exclude string) {
	h.mu.RLock()
	empty := len(h.channels[channel]) == 0
	h.mu.RUnlock()
	if empty {
		return
	}

	frame, err := encodeEvent(event)
	if err != nil {
		log.CtxWarn(ctx, "encode push frame failed: channel=%s, event=%d, error=%v", channel, event.Type, err)
		return
	}

	select {
	case h.pushChan <- &pushTask{channel: channel, exclude: exclude, frame: frame}:
	default:
		metrics.WsPushDropped.WithLabelValues("queue").Inc()
		log.CtxWarn(ctx, "push channel full, event dropped: channel=%s, event=%d", channel, event.Type)
	}
}

// ConnCount returns the number of live connections on this instance
func (h *Hub) ConnCount() int64 {
	return h.connNum.Load()
}

// Users exposes presence tracking
func (h *Hub) Users() *UserMap {
	return h.users
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make(map[string]*Client, len(h.memberships))
	for _, subs := range h.channels {
		for connId, c := range subs {
			clients[connId] = c
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		_ = c.Close()
	}
}
