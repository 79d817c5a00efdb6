package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mbeoliero/haven/common"
	"github.com/mbeoliero/haven/internal/config"
	"github.com/mbeoliero/haven/internal/entity"
	"github.com/mbeoliero/haven/internal/service"
	"github.com/mbeoliero/haven/pkg/errcode"
	"github.com/mbeoliero/haven/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is an in-memory ClientConn
type fakeConn struct {
	in     chan []byte
	mu     sync.Mutex
	out    [][]byte
	closed chan struct{}
	once   sync.Once
	full   atomic.Bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case m := <-f.in:
		return m, nil
	case <-f.closed:
		return nil, ErrConnClosed
	}
}

func (f *fakeConn) WriteMessage(data []byte) error {
	if f.full.Load() {
		return ErrWriteChannelFull
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) frames() []WSResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]WSResponse, 0, len(f.out))
	for _, raw := range f.out {
		var resp WSResponse
		if json.Unmarshal(raw, &resp) == nil {
			out = append(out, resp)
		}
	}
	return out
}

func (f *fakeConn) count(id int32) int {
	n := 0
	for _, fr := range f.frames() {
		if fr.ReqIdentifier == id {
			n++
		}
	}
	return n
}

func (f *fakeConn) send(t *testing.T, id int32, data interface{}) {
	req := WSRequest{ReqIdentifier: id, MsgIncr: uuid.NewString()}
	if data != nil {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		req.Data = raw
	}
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	f.in <- raw
}

// waitFrame waits for the first frame with the given identifier
func (f *fakeConn) waitFrame(t *testing.T, id int32) WSResponse {
	var found WSResponse
	require.Eventually(t, func() bool {
		for _, fr := range f.frames() {
			if fr.ReqIdentifier == id {
				found = fr
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	return found
}

// fakeChat grants access to the conversations listed in allowed
type fakeChat struct {
	allowed map[string]bool
}

func (f *fakeChat) check(conversationId string) error {
	if !f.allowed[conversationId] {
		return errcode.ErrAccessDenied
	}
	return nil
}

func (f *fakeChat) AuthorizeJoin(_ context.Context, _ *common.Principal, conversationId string) (*entity.Conversation, error) {
	if err := f.check(conversationId); err != nil {
		return nil, err
	}
	return &entity.Conversation{Id: conversationId}, nil
}

func (f *fakeChat) Typing(_ context.Context, p *common.Principal, conversationId string, isTyping bool) (*service.TypingEvent, error) {
	if err := f.check(conversationId); err != nil {
		return nil, err
	}
	return &service.TypingEvent{ConversationId: conversationId, SenderId: p.Id, IsTyping: isTyping}, nil
}

func (f *fakeChat) SendMessage(_ context.Context, p *common.Principal, conversationId, text string) (*entity.ChatMessage, error) {
	if err := f.check(conversationId); err != nil {
		return nil, err
	}
	return &entity.ChatMessage{Id: "42", ConversationId: conversationId, SenderId: p.Id, Text: text}, nil
}

func (f *fakeChat) MarkAsRead(_ context.Context, p *common.Principal, conversationId string) (*service.ReadReceiptEvent, error) {
	if err := f.check(conversationId); err != nil {
		return nil, err
	}
	return &service.ReadReceiptEvent{ConversationId: conversationId, ReaderId: p.Id}, nil
}

type fakeAuth map[string]*common.Principal

func (a fakeAuth) Authenticate(_ context.Context, token string) (*common.Principal, *jwt.Claims, error) {
	if p, ok := a[token]; ok {
		return p, &jwt.Claims{UserId: p.Id}, nil
	}
	return nil, nil, errcode.ErrTokenInvalid
}

func newTestServer(t *testing.T, allowed ...string) *WsServer {
	chat := &fakeChat{allowed: make(map[string]bool)}
	for _, id := range allowed {
		chat.allowed[id] = true
	}
	cfg := config.WebSocketConfig{MaxConnNum: 100, TypingRate: 1, TypingBurst: 2}
	hub := NewHub(NewUserMap(nil, time.Minute), 64, 2)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub.Run(ctx)

	return NewWsServer(cfg, hub, fakeAuth{}, chat, chat)
}

func connect(s *WsServer, role common.RoleType) (*Client, *fakeConn) {
	p := &common.Principal{Id: "acc-" + uuid.NewString(), Role: role}
	return connectAs(s, p)
}

func connectAs(s *WsServer, p *common.Principal) (*Client, *fakeConn) {
	conn := newFakeConn()
	client := NewClient(conn, p, uuid.NewString(), s)
	s.hub.Register(context.Background(), client)
	client.Start()
	return client, conn
}

func typingEvent(convId, sender string) *service.Event {
	return &service.Event{Type: service.EventTyping, Payload: &service.TypingEvent{ConversationId: convId, SenderId: sender, IsTyping: true}}
}

func TestJoinRequiresAccess(t *testing.T) {
	s := newTestServer(t, "conv-1")

	_, conn := connect(s, common.RoleOrganization)
	conn.send(t, WSJoinConversation, ConversationReq{ConversationId: "conv-2"})

	errFrame := conn.waitFrame(t, WSPushError)
	assert.Equal(t, errcode.ErrAccessDenied.Code, errFrame.ErrCode)
	assert.Equal(t, "access denied", errFrame.ErrMsg)
	var data ErrorData
	require.NoError(t, json.Unmarshal(errFrame.Data, &data))
	assert.Equal(t, int32(WSJoinConversation), data.ReqIdentifier)
	assert.False(t, s.hub.ConversationHasSubscriber("conv-2"))

	conn.send(t, WSJoinConversation, ConversationReq{ConversationId: "conv-1"})
	ok := conn.waitFrame(t, WSJoinConversation)
	assert.Equal(t, 0, ok.ErrCode)
	var joined JoinResp
	require.NoError(t, json.Unmarshal(ok.Data, &joined))
	assert.Equal(t, "conv:conv-1", joined.Channel)
	assert.True(t, s.hub.ConversationHasSubscriber("conv-1"))
}

func TestBroadcastToConversationExcludesSender(t *testing.T) {
	s := newTestServer(t, "conv-1")
	ctx := context.Background()

	alice, aliceConn := connect(s, common.RoleHomeless)
	_, bobConn := connect(s, common.RoleOrganization)
	_, outsiderConn := connect(s, common.RoleMerchant)

	aliceConn.send(t, WSJoinConversation, ConversationReq{ConversationId: "conv-1"})
	bobConn.send(t, WSJoinConversation, ConversationReq{ConversationId: "conv-1"})
	aliceConn.waitFrame(t, WSJoinConversation)
	bobConn.waitFrame(t, WSJoinConversation)

	s.hub.BroadcastToConversation(ctx, "conv-1", typingEvent("conv-1", alice.UserId), alice.UserId)

	push := bobConn.waitFrame(t, WSPushTyping)
	var ev service.TypingEvent
	require.NoError(t, json.Unmarshal(push.Data, &ev))
	assert.Equal(t, alice.UserId, ev.SenderId)
	assert.True(t, ev.IsTyping)

	assert.Equal(t, 0, aliceConn.count(WSPushTyping))
	assert.Equal(t, 0, outsiderConn.count(WSPushTyping))
}

func TestBroadcastToUserReachesEveryConnection(t *testing.T) {
	s := newTestServer(t)
	p := &common.Principal{Id: "acc-shared", Role: common.RoleHomeless}

	_, phone := connectAs(s, p)
	_, tablet := connectAs(s, p)
	_, other := connect(s, common.RoleHomeless)

	event := &service.Event{Type: service.EventNewMessage, Payload: &service.MessageEvent{
		ConversationId: "conv-9",
		Message:        &entity.ChatMessage{Id: "1", Text: "hi"},
	}}
	s.hub.BroadcastToUser(context.Background(), p.Id, event)

	phone.waitFrame(t, WSPushMessage)
	tablet.waitFrame(t, WSPushMessage)
	assert.Equal(t, 0, other.count(WSPushMessage))
	assert.Equal(t, 2, s.hub.Users().OnlineUserCount())
}

func TestLeaveAndDisconnectDropSubscriptions(t *testing.T) {
	s := newTestServer(t, "conv-1")

	client, conn := connect(s, common.RoleHomeless)
	conn.send(t, WSJoinConversation, ConversationReq{ConversationId: "conv-1"})
	conn.waitFrame(t, WSJoinConversation)
	require.True(t, s.hub.ConversationHasSubscriber("conv-1"))

	conn.send(t, WSLeaveConversation, ConversationReq{ConversationId: "conv-1"})
	conn.waitFrame(t, WSLeaveConversation)
	assert.False(t, s.hub.ConversationHasSubscriber("conv-1"))

	conn.send(t, WSJoinConversation, ConversationReq{ConversationId: "conv-1"})
	require.Eventually(t, func() bool { return conn.count(WSJoinConversation) == 2 }, time.Second, 5*time.Millisecond)

	ctx := context.Background()
	assert.True(t, s.hub.Users().IsOnline(ctx, client.UserId))

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return s.hub.ConnCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.False(t, s.hub.ConversationHasSubscriber("conv-1"))
	assert.False(t, s.hub.Users().HasConnection(client.UserId))
	assert.False(t, s.hub.Users().IsOnline(ctx, client.UserId))
	assert.True(t, client.IsClosed())

	// a second unregister is a no-op
	s.hub.Unregister(ctx, client)
	assert.Equal(t, int64(0), s.hub.ConnCount())
}

func TestTypingIsRateLimited(t *testing.T) {
	s := newTestServer(t, "conv-1")
	_, conn := connect(s, common.RoleMerchant)

	for i := 0; i < 3; i++ {
		conn.send(t, WSTypingStart, ConversationReq{ConversationId: "conv-1"})
	}
	errFrame := conn.waitFrame(t, WSPushError)
	assert.Equal(t, errcode.ErrTooManyRequests.Code, errFrame.ErrCode)
	assert.Equal(t, 2, conn.count(WSTypingStart))

	conn.send(t, WSTypingStop, ConversationReq{ConversationId: "conv-1"})
	stop := conn.waitFrame(t, WSTypingStop)
	var ev service.TypingEvent
	require.NoError(t, json.Unmarshal(stop.Data, &ev))
	assert.False(t, ev.IsTyping)
}

func TestTypingDeniedForOutsiders(t *testing.T) {
	s := newTestServer(t, "conv-1")
	_, conn := connect(s, common.RoleDonor)

	conn.send(t, WSTypingStart, ConversationReq{ConversationId: "conv-other"})
	errFrame := conn.waitFrame(t, WSPushError)
	assert.Equal(t, errcode.ErrAccessDenied.Code, errFrame.ErrCode)
}

func TestSendAndMarkReadOverSocket(t *testing.T) {
	s := newTestServer(t, "conv-1")
	client, conn := connect(s, common.RoleHomeless)

	conn.send(t, WSSendMessage, ConversationReq{ConversationId: "conv-1", Text: "need a blanket"})
	sent := conn.waitFrame(t, WSSendMessage)
	var msg entity.ChatMessage
	require.NoError(t, json.Unmarshal(sent.Data, &msg))
	assert.Equal(t, "need a blanket", msg.Text)
	assert.Equal(t, client.UserId, msg.SenderId)

	conn.send(t, WSMarkRead, ConversationReq{ConversationId: "conv-1"})
	read := conn.waitFrame(t, WSMarkRead)
	var receipt service.ReadReceiptEvent
	require.NoError(t, json.Unmarshal(read.Data, &receipt))
	assert.Equal(t, client.UserId, receipt.ReaderId)
}

func TestMalformedFrames(t *testing.T) {
	s := newTestServer(t, "conv-1")
	_, conn := connect(s, common.RoleHomeless)

	conn.in <- []byte("not json")
	conn.send(t, 9999, nil)
	conn.send(t, WSJoinConversation, nil)

	require.Eventually(t, func() bool { return conn.count(WSPushError) == 3 }, time.Second, 5*time.Millisecond)
	frames := conn.frames()
	assert.Equal(t, errcode.ErrInvalidProtocol.Code, frames[0].ErrCode)
	assert.Equal(t, errcode.ErrInvalidProtocol.Code, frames[1].ErrCode)
	assert.Equal(t, errcode.ErrInvalidParam.Code, frames[2].ErrCode)
}

func TestHeartbeat(t *testing.T) {
	s := newTestServer(t)
	_, conn := connect(s, common.RoleHomeless)

	conn.send(t, WSHeartbeat, nil)
	frame := conn.waitFrame(t, WSHeartbeat)
	var resp HeartbeatResp
	require.NoError(t, json.Unmarshal(frame.Data, &resp))
	assert.Greater(t, resp.ServerTime, int64(0))
}

func TestEnqueueNeverBlocks(t *testing.T) {
	// no workers: the queue fills up and further events are dropped
	hub := NewHub(nil, 1, 1)
	s := NewWsServer(config.WebSocketConfig{}, hub, fakeAuth{}, &fakeChat{}, &fakeChat{})
	client := NewClient(newFakeConn(), &common.Principal{Id: "acc-1", Role: common.RoleHomeless}, "conn-1", s)
	hub.Register(context.Background(), client)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.BroadcastToUser(context.Background(), "acc-1", typingEvent("conv-1", "x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full queue")
	}
	assert.Len(t, hub.pushChan, 1)

	// no subscriber: nothing is queued at all
	hub.BroadcastToConversation(context.Background(), "conv-none", typingEvent("conv-none", "x"), "")
	assert.Len(t, hub.pushChan, 1)
}

func TestSlowConsumerOnlyLosesItsOwnFrames(t *testing.T) {
	hub := NewHub(nil, 8, 1)
	s := NewWsServer(config.WebSocketConfig{}, hub, fakeAuth{}, &fakeChat{}, &fakeChat{})

	slowConn, fastConn := newFakeConn(), newFakeConn()
	slowConn.full.Store(true)
	slow := NewClient(slowConn, &common.Principal{Id: "acc-slow"}, "c-slow", s)
	fast := NewClient(fastConn, &common.Principal{Id: "acc-fast"}, "c-fast", s)
	hub.Register(context.Background(), slow)
	hub.Register(context.Background(), fast)
	hub.Subscribe("conv:conv-1", slow)
	hub.Subscribe("conv:conv-1", fast)

	frame, err := encodeEvent(typingEvent("conv-1", "acc-x"))
	require.NoError(t, err)
	delivered := hub.deliver(&pushTask{channel: "conv:conv-1", frame: frame})

	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, fastConn.count(WSPushTyping))
	assert.Equal(t, 0, slowConn.count(WSPushTyping))
}

func TestEncodeEvent(t *testing.T) {
	frame, err := encodeEvent(&service.Event{Type: service.EventReadReceipt, Payload: &service.ReadReceiptEvent{ConversationId: "c", UnreadCountHomeless: 0}})
	require.NoError(t, err)

	var resp WSResponse
	require.NoError(t, json.Unmarshal(frame, &resp))
	assert.Equal(t, int32(WSPushReadReceipt), resp.ReqIdentifier)
	assert.Contains(t, string(resp.Data), `"unread_count_homeless":0`)

	_, err = encodeEvent(&service.Event{Type: service.EventType(99)})
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestConnOptionsDefaults(t *testing.T) {
	o := ConnOptions{PongWait: 10 * time.Second, PingPeriod: 20 * time.Second}.withDefaults()
	assert.Equal(t, 9*time.Second, o.PingPeriod)
	assert.Equal(t, DefaultWriteWait, o.WriteWait)
	assert.Equal(t, int64(DefaultMaxMessageSize), o.MaxMessageSize)
	assert.Equal(t, DefaultWriteChannelSize, o.WriteChannelSize)
}
